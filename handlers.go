package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"unicode/utf8"

	"receiptocr/models"
	"receiptocr/pkg/ocr"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 5 * 1024 * 1024

func setupRoutes(r *gin.Engine) {
	r.POST("/ocr", ocrHandler)
	r.GET("/receipts", listReceiptsHandler)
	r.GET("/receipts/:id", getReceiptHandler)
}

// ocrHandler accepts a multipart receipt image, runs the full pipeline
// synchronously and responds with the raw text plus the extracted fields.
// Only an undecodable upload is an error; a receipt where nothing could be
// extracted still answers 200 with null fields.
func ocrHandler(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image missing"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 5MB)"})
		return
	}

	dir, err := os.MkdirTemp("", "receipt-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "temp dir failed"})
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	res, err := pipe.ProcessFile(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, ocr.ErrDecode) {
			recordFailure(file.Filename, err.Error())
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "uploaded file is not a decodable image"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	recordReceipt(file.Filename, file.Header.Get("Content-Type"), res)
	c.JSON(http.StatusOK, res)
}

// recordReceipt persists an extraction result when a database is configured.
// Persistence is best-effort on the web path: failures are logged, never
// surfaced to the uploader.
func recordReceipt(fileName, contentType string, res ocr.Result) {
	if db == nil {
		return
	}
	var existing models.Receipt
	if err := db.Where("file_name = ?", fileName).First(&existing).Error; err == nil {
		existing.ContentType = contentType
		applyResult(&existing, res)
		if err := db.Save(&existing).Error; err != nil {
			log.Printf("receipt update failed for %s: %v", fileName, err)
		}
		return
	}
	rec := models.Receipt{FileName: fileName, ContentType: contentType}
	applyResult(&rec, res)
	if err := db.Create(&rec).Error; err != nil {
		log.Printf("receipt create failed for %s: %v", fileName, err)
	}
}

// recordFailure marks a receipt row failed so it can be reviewed later.
func recordFailure(fileName, reason string) {
	if db == nil {
		return
	}
	reason = truncateReason(reason)
	rec := models.Receipt{FileName: fileName, Failed: true, FailedReason: reason}
	var existing models.Receipt
	if err := db.Where("file_name = ?", fileName).First(&existing).Error; err == nil {
		existing.Failed = true
		existing.FailedReason = reason
		if err := db.Save(&existing).Error; err != nil {
			log.Printf("receipt failure update failed for %s: %v", fileName, err)
		}
		return
	}
	if err := db.Create(&rec).Error; err != nil {
		log.Printf("receipt failure create failed for %s: %v", fileName, err)
	}
}

// truncateReason caps a failure reason at the column size without splitting
// a multi-byte rune.
func truncateReason(s string) string {
	const max = 255
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func applyResult(rec *models.Receipt, res ocr.Result) {
	rec.MerchantName = res.Fields.MerchantName
	rec.Date = res.Fields.Date
	rec.TotalAmount = res.Fields.TotalAmount
	rec.TransactionID = res.Fields.TransactionID
	rec.PaymentMethod = res.Fields.PaymentMethod
	rec.RawText = res.Text
	rec.Failed = false
	rec.FailedReason = ""
}

// listReceiptsHandler returns recent processed receipts.
func listReceiptsHandler(c *gin.Context) {
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence not configured"})
		return
	}
	var items []models.Receipt
	if err := db.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// getReceiptHandler returns a single processed receipt by id.
func getReceiptHandler(c *gin.Context) {
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence not configured"})
		return
	}
	var rec models.Receipt
	if err := db.First(&rec, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}
