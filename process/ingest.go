package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"receiptocr/models"
	"receiptocr/pkg/ocr"
)

// Global DB handle for helper funcs
var db *gorm.DB

var verbose bool

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans a directory of receipt images, runs the extraction pipeline
// over them with a bounded pool, records results, optional watch mode.
func main() {
	dirFlag := flag.String("dir", receiptBaseDir(), "directory to scan for receipt images")
	dryRun := flag.Bool("dry-run", false, "Skip all DB writes; run the pipeline and print results")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default OCR_WORKERS or NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()

	pipeline := ocr.NewPipeline(ocr.NewTesseractEngine(), timeoutFromEnv())
	ctx := context.Background()

	if err := os.MkdirAll(*dirFlag, 0755); err != nil {
		log.Fatalf("cannot create receipt dir %s: %v", *dirFlag, err)
	}
	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Join(*dirFlag, f)
	}
	results, errs := pipeline.ProcessBatch(ctx, paths, effectiveWorkers(*workers))
	for i, res := range results {
		if *dryRun {
			if errs[i] != nil {
				log.Printf("DRY %s FAILED: %v", files[i], errs[i])
				continue
			}
			log.Printf("DRY %s merchant=%v date=%v total=%v txid=%v method=%v",
				files[i], deref(res.Fields.MerchantName), deref(res.Fields.Date),
				derefF(res.Fields.TotalAmount), deref(res.Fields.TransactionID), deref(res.Fields.PaymentMethod))
			continue
		}
		if db == nil {
			db = mustInitDBFromEnv()
		}
		if errs[i] != nil {
			saveFailure(files[i], *dirFlag, errs[i].Error())
			continue
		}
		saveResult(files[i], *dirFlag, res)
	}

	if *watch {
		if *dryRun {
			log.Fatalf("-watch cannot be combined with -dry-run")
		}
		if db == nil {
			db = mustInitDBFromEnv()
		}
		if err := watchDirectory(ctx, *dirFlag, pipeline); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

// receiptBaseDir is the default ingest directory (configurable via
// RECEIPT_BASE env).
func receiptBaseDir() string {
	if v := os.Getenv("RECEIPT_BASE"); v != "" {
		return v
	}
	return "receipts"
}

func timeoutFromEnv() time.Duration {
	if v := os.Getenv("OCR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return ocr.DefaultTimeout
}

func effectiveWorkers(w int) int {
	if w > 0 {
		return w
	}
	if v := os.Getenv("OCR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
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

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func derefF(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".tif", ".tiff", ".bmp":
		return true
	}
	return false
}

// saveResult upserts a Receipt row keyed on file name.
func saveResult(name, dir string, res ocr.Result) {
	rec := models.Receipt{FileName: name, StorePath: filepath.ToSlash(filepath.Join(dir, name))}
	var existing models.Receipt
	if err := db.Where("file_name = ?", name).First(&existing).Error; err == nil {
		rec = existing
	}
	rec.MerchantName = res.Fields.MerchantName
	rec.Date = res.Fields.Date
	rec.TotalAmount = res.Fields.TotalAmount
	rec.TransactionID = res.Fields.TransactionID
	rec.PaymentMethod = res.Fields.PaymentMethod
	rec.RawText = res.Text
	rec.Failed = false
	rec.FailedReason = ""
	if rec.ID == 0 {
		if err := db.Create(&rec).Error; err != nil {
			log.Printf("ERROR create receipt %s: %v", name, err)
			return
		}
		log.Printf("NEW receipt id=%d file=%s", rec.ID, name)
	} else {
		if err := db.Save(&rec).Error; err != nil {
			log.Printf("ERROR update receipt %s: %v", name, err)
			return
		}
		logV("updated receipt id=%d file=%s", rec.ID, name)
	}
}

// saveFailure records a pipeline failure (decode error) without dropping the row.
func saveFailure(name, dir, reason string) {
	reason = truncateReason(reason)
	var existing models.Receipt
	if err := db.Where("file_name = ?", name).First(&existing).Error; err == nil {
		existing.Failed = true
		existing.FailedReason = reason
		_ = db.Save(&existing).Error
		return
	}
	rec := models.Receipt{
		FileName:     name,
		StorePath:    filepath.ToSlash(filepath.Join(dir, name)),
		Failed:       true,
		FailedReason: reason,
	}
	if err := db.Create(&rec).Error; err != nil {
		log.Printf("ERROR record failure %s: %v", name, err)
	}
}

// watchDirectory processes files as they appear. Events are debounced so
// half-written files are not fed to the decoder.
func watchDirectory(ctx context.Context, dir string, pipeline *ocr.Pipeline) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create || ev.Op&fsnotify.Write == fsnotify.Write {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	for name := range fileCh {
		res, err := pipeline.ProcessFile(ctx, filepath.Join(dir, name))
		if err != nil {
			log.Printf("pipeline failed for %s: %v", name, err)
			saveFailure(name, dir, err.Error())
			continue
		}
		saveResult(name, dir, res)
	}
	return nil
}
