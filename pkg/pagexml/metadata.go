package pagexml

import (
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

func (p *PageXML) metadata(op string) (*etree.Element, error) {
	meta := firstChild(p.Root(), ElemMetadata)
	if meta == nil {
		return nil, lookupf(op, "document has no %s", ElemMetadata)
	}
	return meta, nil
}

// UpdateLastChange sets Metadata/LastChange to the current time.
func (p *PageXML) UpdateLastChange() error {
	meta, err := p.metadata("UpdateLastChange")
	if err != nil {
		return err
	}
	lc := firstChild(meta, "LastChange")
	if lc == nil {
		if lc, err = p.AddElement("LastChange", "", meta, Append, false); err != nil {
			return err
		}
	}
	lc.SetText(timestamp(time.Now()))
	return nil
}

// ProcessStart records the start of a processing pass by tool. ref is an
// optional reference such as a model or configuration name.
func (p *PageXML) ProcessStart(tool, ref string) (*etree.Element, error) {
	const op = "ProcessStart"
	meta, err := p.metadata(op)
	if err != nil {
		return nil, err
	}
	proc, err := p.AddElement(ElemProcess, "", meta, Append, false)
	if err != nil {
		return nil, err
	}
	p.processStart = time.Now()
	proc.CreateAttr("id", "proc_"+uuid.NewString())
	p.indexIDs(proc)
	proc.CreateAttr("started", timestamp(p.processStart))
	proc.CreateAttr("tool", tool)
	if ref != "" {
		proc.CreateAttr("ref", ref)
	}
	p.process = proc
	return proc, nil
}

// ProcessEnd closes the pass opened by ProcessStart, recording its duration
// in seconds and updating LastChange.
func (p *PageXML) ProcessEnd() error {
	if p.process == nil {
		return structuref("ProcessEnd", "no process started")
	}
	secs := time.Since(p.processStart).Seconds()
	p.process.CreateAttr("time", strconv.FormatFloat(secs, 'f', 3, 64))
	p.process = nil
	return p.UpdateLastChange()
}
