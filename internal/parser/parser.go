package parser

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"document-qa/internal/models"
)

const (
	fieldSeparator = ","
	rowSeparator   = "\n"
)

var (
	whitespaceRe = regexp.MustCompile(models.WhitespaceRegex)
	xmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	slideNameRe  = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
)

type extractor func(filePath string) ([]models.Page, error)

var extractors = map[string]extractor{
	".pdf":  parsePDF,
	".docx": parseDOCX,
	".pptx": parsePPTX,
	".md":   parseMarkdown,
	".txt":  parseText,
	".csv":  parseCSV,
	".xlsx": parseXLSX,
	".xlsm": parseWorkbook,
	".xltx": parseWorkbook,
	".xltm": parseWorkbook,
}

// Supported reports whether fileName has an extension ExtractPages handles.
func Supported(fileName string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(fileName))]
	return ok
}

// Extensions lists the supported file extensions in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(extractors))
	for ext := range extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ExtractPages returns the text of a document as pages. PDFs and slide decks
// yield one page per page or slide, numbered from 1. Every other format
// yields a single page numbered models.NoPage. Tabular formats keep their row
// structure: one line per row, cells joined by commas.
func ExtractPages(filePath string) ([]models.Page, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	extract, ok := extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, ext)
	}
	pages, err := extract(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", filepath.Base(filePath), err)
	}
	log.Debug().Str("file", filePath).Int("pages", len(pages)).Msg("Extracted document")
	return pages, nil
}

// NormalizeText collapses whitespace runs to a single space and trims.
func NormalizeText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

func singlePage(s string) []models.Page {
	return []models.Page{{Number: models.String(models.NoPage), Text: s}}
}

func parsePDF(filePath string) ([]models.Page, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]models.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, models.Page{Number: models.Int(i), Text: NormalizeText(pageText)})
	}
	return pages, nil
}

func parseDOCX(filePath string) ([]models.Page, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return singlePage(NormalizeText(docxText(r.Editable().GetContent()))), nil
}

// docxText strips WordprocessingML markup, keeping paragraph breaks.
func docxText(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", rowSeparator)
	content = strings.ReplaceAll(content, "<w:tab/>", " ")
	return html.UnescapeString(xmlTagRe.ReplaceAllString(content, ""))
}

func parsePPTX(filePath string) ([]models.Page, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	type slide struct {
		number int
		text   string
	}
	var slides []slide
	for _, file := range zr.File {
		m := slideNameRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		slides = append(slides, slide{number: n, text: extractTextFromXML(string(data))})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	pages := make([]models.Page, 0, len(slides))
	for _, s := range slides {
		pages = append(pages, models.Page{Number: models.Int(s.number), Text: NormalizeText(s.text)})
	}
	return pages, nil
}

func extractTextFromXML(xmlContent string) string {
	var sb strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		if end := strings.Index(part, "</a:t>"); end >= 0 {
			sb.WriteString(html.UnescapeString(part[:end]))
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

func parseMarkdown(filePath string) ([]models.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return singlePage(NormalizeText(markdownText(data))), nil
}

// markdownText renders the plain text of a markdown document, one line per block.
func markdownText(src []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteString(rowSeparator)
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.URL(src))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func parseText(filePath string) ([]models.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return singlePage(NormalizeText(string(data))), nil
}

func parseCSV(filePath string) ([]models.Page, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := CSVToText(f)
	if err != nil {
		return nil, err
	}
	return singlePage(s), nil
}

// CSVToText reads CSV rows and re-joins each row's cells with commas,
// one row per line. Quoting is resolved; quoted separators are not preserved.
func CSVToText(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		rows = append(rows, strings.Join(record, fieldSeparator))
	}
	return strings.Join(rows, rowSeparator), nil
}

func parseXLSX(filePath string) ([]models.Page, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var rows []string
	for _, sheet := range f.Sheets {
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, len(row.Cells))
			for i, cell := range row.Cells {
				cells[i] = cell.String()
			}
			rows = append(rows, strings.Join(cells, fieldSeparator))
		}
	}
	return singlePage(strings.Join(rows, rowSeparator)), nil
}

// parseWorkbook handles the OOXML workbook variants through excelize.
func parseWorkbook(filePath string) ([]models.Page, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		for _, row := range rows {
			lines = append(lines, strings.Join(row, fieldSeparator))
		}
	}
	return singlePage(strings.Join(lines, rowSeparator)), nil
}
