// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// doiScanPages is how many leading pages are searched for a DOI.
const doiScanPages = 3

var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// PDFInfo is what ingestion learns from a downloaded file.
type PDFInfo struct {
	Pages int
	DOI   string
}

// Inspect opens a PDF, counts its pages and looks for a DOI on the first
// pages. A file that is not a PDF or has no pages is an error.
func Inspect(path string) (info PDFInfo, err error) {
	// The reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unreadable PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	info.Pages = r.NumPage()
	if info.Pages == 0 {
		return PDFInfo{}, errors.New("PDF has no pages")
	}

	for i := 1; i <= min(info.Pages, doiScanPages); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := FindDOI(text); doi != "" {
			info.DOI = doi
			break
		}
	}
	return info, nil
}

// FindDOI returns the first DOI in text, without trailing punctuation.
func FindDOI(text string) string {
	m := doiPattern.FindString(text)
	return strings.TrimRight(m, ".,;:)")
}
