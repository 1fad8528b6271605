package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
	"document-qa/internal/vectorstore"
)

type DocumentHandler struct {
	ingestor *rag.Ingestor
	store    *vectorstore.Store
	inputDir string
}

func NewDocumentHandler(ingestor *rag.Ingestor, store *vectorstore.Store, inputDir string) *DocumentHandler {
	return &DocumentHandler{ingestor: ingestor, store: store, inputDir: inputDir}
}

// Upload saves the multipart "file" into the input directory and ingests it.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		writeError(c, fmt.Errorf("missing file: %w", models.ErrInvalidInput))
		return
	}
	name := filepath.Base(file.Filename)
	if name == "." || name == string(filepath.Separator) || !parser.Supported(name) {
		writeError(c, fmt.Errorf("%s: %w (supported: %s)", file.Filename, models.ErrUnsupportedFormat,
			strings.Join(parser.Extensions(), ", ")))
		return
	}

	dst := filepath.Join(h.inputDir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		writeError(c, fmt.Errorf("failed to save upload: %w", err))
		return
	}

	res, err := h.ingestor.IngestFile(c.Request.Context(), dst)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename": res.FileName,
		"status":   "uploaded and embedded",
		"chunks":   res.Chunks,
		"added":    res.Added,
		"skipped":  res.Skipped,
	})
}

// Delete removes every chunk stored for a file name.
func (h *DocumentHandler) Delete(c *gin.Context) {
	name := c.Param("file_name")
	removed, err := h.store.DeleteFile(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_name": name, "removed": removed})
}

func (h *DocumentHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}
