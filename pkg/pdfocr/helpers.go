package pdfocr

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// normalizeCoords rescales image pixel coords to PDF coords.
func normalizeCoords(x, y, imgW, imgH, pdfW, pdfH float64) (float64, float64) {
	nx := (x / imgW) * pdfW
	ny := (y / imgH) * pdfH
	return nx, ny
}

func unescapePDFString(s string) string {
	s = strings.ReplaceAll(s, "\\(", "(")
	s = strings.ReplaceAll(s, "\\)", ")")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return s
}

func decodeUTF16BE(b []byte) (string, error) {
	if len(b) < 2 || b[0] != 0xFE || b[1] != 0xFF {
		return "", fmt.Errorf("no BOM detected, cannot confirm UTF-16BE")
	}
	b = b[2:]
	runes := make([]rune, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		runes = append(runes, rune(uint16(b[i])<<8|uint16(b[i+1])))
	}
	return string(runes), nil
}

// dumpPDFStructure logs the first byteCount bytes of the PDF plus the
// context of the first /OCG reference at debug level.
func dumpPDFStructure(pdfData []byte, byteCount int, log *logrus.Entry) {
	byteCount = min(byteCount, len(pdfData))
	log.WithField("bytes", byteCount).Debugf("PDF structure:\n%s", pdfData[:byteCount])

	if ocgIndex := bytes.Index(pdfData, []byte("/OCG")); ocgIndex >= 0 {
		start := max(ocgIndex-20, 0)
		end := min(ocgIndex+100, len(pdfData))
		log.Debugf("OCG context:\n%s", pdfData[start:end])
	}
}
