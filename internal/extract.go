package internal

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	exiftool "github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// Extractor discovers every candidate timestamp a file carries. The
// default path decodes EXIF in-process; the exiftool binary is opt-in and
// covers RAW and video formats the native decoder cannot parse.
type Extractor struct {
	et *exiftool.Exiftool
}

// NewExtractor creates an extractor. With useExifTool set it spawns a
// long-lived exiftool process, which the caller must Close.
func NewExtractor(useExifTool bool) (*Extractor, error) {
	if !useExifTool {
		return &Extractor{}, nil
	}
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("failed to start exiftool: %w", err)
	}
	return &Extractor{et: et}, nil
}

// Close releases the exiftool process, if one was started.
func (e *Extractor) Close() error {
	if e.et != nil {
		return e.et.Close()
	}
	return nil
}

// Candidates returns every timestamp source discovered for the file, in
// source-priority order. An empty result means no timestamp could be
// determined at all; metadata decode failures degrade to the filename and
// filesystem sources rather than erroring.
func (e *Extractor) Candidates(path string) []Candidate {
	var candidates []Candidate

	if e.et != nil {
		candidates = append(candidates, e.exiftoolCandidates(path)...)
	} else {
		candidates = append(candidates, nativeExifCandidates(path)...)
	}

	if ts, ok := filenameTimestamp(filepath.Base(path)); ok {
		candidates = append(candidates, Candidate{
			Value:  ts,
			Source: SourceFilename,
			Weight: SourceFilename.DefaultWeight(),
		})
	}

	if info, err := os.Stat(path); err == nil {
		candidates = append(candidates, Candidate{
			Value:  info.ModTime(),
			Source: SourceFilesystem,
			Weight: SourceFilesystem.DefaultWeight(),
		})
	}

	return candidates
}

// nativeExifCandidates reads the three EXIF date fields in-process.
func nativeExifCandidates(path string) []Candidate {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil
	}

	fields := []struct {
		name   exif.FieldName
		source TimestampSource
	}{
		{exif.DateTimeOriginal, SourceExifOriginal},
		{exif.DateTimeDigitized, SourceExifDigitized},
		{exif.DateTime, SourceExifModified},
	}

	var candidates []Candidate
	for _, field := range fields {
		tag, err := x.Get(field.name)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		ts, err := time.ParseInLocation(exifTimeLayout, raw, time.Local)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Value:  ts,
			Source: field.source,
			Weight: field.source.DefaultWeight(),
		})
	}
	return candidates
}

// exiftoolCandidates reads the same date fields through the exiftool
// binary, which also understands RAW and video containers.
func (e *Extractor) exiftoolCandidates(path string) []Candidate {
	metas := e.et.ExtractMetadata(path)
	if len(metas) == 0 || metas[0].Err != nil {
		return nil
	}
	meta := metas[0]

	fields := []struct {
		key    string
		source TimestampSource
	}{
		{"DateTimeOriginal", SourceExifOriginal},
		{"CreateDate", SourceExifDigitized},
		{"ModifyDate", SourceExifModified},
	}

	var candidates []Candidate
	for _, field := range fields {
		raw, err := meta.GetString(field.key)
		if err != nil {
			continue
		}
		ts, err := time.ParseInLocation(exifTimeLayout, raw, time.Local)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Value:  ts,
			Source: field.source,
			Weight: field.source.DefaultWeight(),
		})
	}
	return candidates
}

// Filename patterns seen from phones and messaging apps:
// IMG_20240601_100000.jpg, 20240601_100000.mp4, PXL_20240601_100000123.jpg,
// 2024-06-01 10.00.00.jpg.
var filenamePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`(20\d{6}[_-]\d{6})`), "20060102_150405"},
	{regexp.MustCompile(`(20\d{2}-\d{2}-\d{2}[ _]\d{2}\.\d{2}\.\d{2})`), "2006-01-02 15.04.05"},
}

// filenameTimestamp parses a capture time embedded in the file name.
func filenameTimestamp(name string) (time.Time, bool) {
	for _, p := range filenamePatterns {
		match := p.re.FindString(name)
		if match == "" {
			continue
		}
		normalized := match
		if p.layout == "20060102_150405" {
			// Accept both _ and - separators.
			normalized = strings.ReplaceAll(match, "-", "_")
		} else {
			normalized = strings.ReplaceAll(match, "_", " ")
		}
		if ts, err := time.ParseInLocation(p.layout, normalized, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ContentHash computes the SHA-256 hex digest of a file's bytes.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
