package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ArowuTest/raffle-backend/pkg/cloudinary"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxProofSize bounds uploaded payment-proof files
const MaxProofSize = 5 << 20

var proofExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".pdf": true,
}

// ProofUploader stores a payment-proof file and returns its URL
type ProofUploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (string, error)
}

// ProofHandler handles payment-proof uploads
type ProofHandler struct {
	uploader ProofUploader
	log      *zap.Logger
}

// NewProofHandler creates a new ProofHandler
func NewProofHandler(uploader ProofUploader, log *zap.Logger) *ProofHandler {
	return &ProofHandler{uploader: uploader, log: log.Named("proofs")}
}

// UploadProof handles POST /payment-proofs (multipart field "file")
func (h *ProofHandler) UploadProof(c *gin.Context) {
	buyer, ok := currentIdentity(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxProofSize+1<<10)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if fileHeader.Size > MaxProofSize {
		badRequest(c, "file is too large")
		return
	}
	if !proofExtensions[strings.ToLower(filepath.Ext(fileHeader.Filename))] {
		badRequest(c, "file must be an image or a PDF")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "file could not be read")
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(c.Request.Context(), file, fileHeader.Filename)
	if errors.Is(err, cloudinary.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errorBody{Kind: "UNAVAILABLE", Message: "proof uploads are disabled"}})
		return
	}
	if err != nil {
		h.log.Error("proof upload failed", zap.String("buyer_id", buyer.Subject), zap.Error(err))
		respondError(c, err)
		return
	}
	h.log.Info("proof uploaded", zap.String("buyer_id", buyer.Subject))
	c.JSON(http.StatusCreated, gin.H{"paymentProof": url})
}
