package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"receiptocr/pkg/ocr"
)

// Debug tool: run the extraction pipeline over the given image files and
// print one JSON result per line.
func main() {
	timeout := flag.Duration("timeout", ocr.DefaultTimeout, "per-image OCR timeout")
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatalf("usage: ocr_dump [-timeout 30s] <image> [image ...]")
	}

	pipeline := ocr.NewPipeline(ocr.NewTesseractEngine(), *timeout)
	ctx := context.Background()

	exit := 0
	for _, path := range flag.Args() {
		start := time.Now()
		res, err := pipeline.ProcessFile(ctx, path)
		if err != nil {
			log.Printf("%s: %v", path, err)
			exit = 1
			continue
		}
		out, _ := json.Marshal(res)
		fmt.Printf("%s %s (%.1fs)\n", path, out, time.Since(start).Seconds())
	}
	os.Exit(exit)
}
