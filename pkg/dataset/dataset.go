// Package dataset turns per-identity photo folders into a labeled corpus of
// normalized face samples, and captures new photo samples from a camera.
package dataset

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/MrCodeEU/faceattend/pkg/logging"
	"github.com/MrCodeEU/faceattend/pkg/metrics"
	"github.com/MrCodeEU/faceattend/pkg/vision"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Sample is one normalized face region tagged with its identity.
type Sample struct {
	IdentityID int
	Image      *image.Gray
	SourcePath string
}

// WarningKind classifies a non-fatal corpus problem.
type WarningKind int

const (
	FolderMissing WarningKind = iota + 1
	Undecodable
	NoFace
	DetectFailed
)

func (k WarningKind) String() string {
	switch k {
	case FolderMissing:
		return "folder_missing"
	case Undecodable:
		return "undecodable"
	case NoFace:
		return "no_face"
	case DetectFailed:
		return "detect_failed"
	default:
		return "unknown"
	}
}

// Warning is a skipped identity or file. Warnings never abort a build.
type Warning struct {
	Kind       WarningKind
	IdentityID int
	Path       string
	Err        error
}

func (w Warning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("%s: %s (identity %d): %v", w.Kind, w.Path, w.IdentityID, w.Err)
	}
	return fmt.Sprintf("%s: %s (identity %d)", w.Kind, w.Path, w.IdentityID)
}

// Corpus is the output of Build.
type Corpus struct {
	Samples  []Sample
	Warnings []Warning
}

// Labeled converts the samples to matcher training input.
func (c *Corpus) Labeled() []vision.Labeled {
	out := make([]vision.Labeled, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = vision.Labeled{Image: s.Image, Label: s.IdentityID}
	}
	return out
}

// CountByIdentity returns how many samples each identity contributed.
func (c *Corpus) CountByIdentity() map[int]int {
	counts := make(map[int]int)
	for _, s := range c.Samples {
		counts[s.IdentityID]++
	}
	return counts
}

// Progress receives per-file progress. *progressbar.ProgressBar satisfies it.
type Progress interface {
	ChangeMax(max int)
	Add(n int) error
}

// Builder builds corpora with one detector and one parameter set.
type Builder struct {
	detector vision.Detector
	params   vision.DetectParams
	progress Progress
}

// NewBuilder returns a builder. Pass vision.BatchParams for offline accuracy.
func NewBuilder(detector vision.Detector, params vision.DetectParams) *Builder {
	return &Builder{detector: detector, params: params}
}

// WithProgress reports each processed file to p.
func (b *Builder) WithProgress(p Progress) *Builder {
	b.progress = p
	return b
}

// IdentityFolder is the photo folder of id under root.
func IdentityFolder(root string, id int) string {
	return filepath.Join(root, strconv.Itoa(id))
}

// Build walks photoRoot/<id>/ for every id. Identities are visited in
// ascending order and files by name, so unchanged inputs give an identical
// corpus.
func (b *Builder) Build(identityIDs []int, photoRoot string) *Corpus {
	ids := append([]int(nil), identityIDs...)
	sort.Ints(ids)

	corpus := &Corpus{}
	files := make(map[int][]string, len(ids))
	total := 0
	for _, id := range ids {
		dir := IdentityFolder(photoRoot, id)
		names, err := listImages(dir)
		if err != nil {
			b.warn(corpus, Warning{Kind: FolderMissing, IdentityID: id, Path: dir, Err: err})
			continue
		}
		files[id] = names
		total += len(names)
	}

	if b.progress != nil {
		b.progress.ChangeMax(total)
	}

	for _, id := range ids {
		for _, path := range files[id] {
			b.addFile(corpus, id, path)
			if b.progress != nil {
				_ = b.progress.Add(1)
			}
		}
	}

	logging.WithFields(logging.Fields{
		"identities": len(ids),
		"samples":    len(corpus.Samples),
		"warnings":   len(corpus.Warnings),
	}).Info("Corpus built")
	return corpus
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func (b *Builder) addFile(corpus *Corpus, id int, path string) {
	img, err := decodeGray(path)
	if err != nil {
		b.warn(corpus, Warning{Kind: Undecodable, IdentityID: id, Path: path, Err: err})
		return
	}

	regions, err := b.detector.Detect(img, b.params)
	if err != nil {
		b.warn(corpus, Warning{Kind: DetectFailed, IdentityID: id, Path: path, Err: err})
		return
	}
	if len(regions) == 0 {
		b.warn(corpus, Warning{Kind: NoFace, IdentityID: id, Path: path})
		return
	}

	for _, r := range regions {
		corpus.Samples = append(corpus.Samples, Sample{
			IdentityID: id,
			Image:      vision.Normalize(img, r),
			SourcePath: path,
		})
		metrics.CorpusSample()
	}
}

func decodeGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return vision.ToGray(img), nil
}

func (b *Builder) warn(corpus *Corpus, w Warning) {
	corpus.Warnings = append(corpus.Warnings, w)
	metrics.CorpusWarning(w.Kind.String())

	entry := logging.WithFields(logging.Fields{
		"identity_id": w.IdentityID,
		"path":        w.Path,
	})
	if w.Err != nil {
		entry = entry.WithError(w.Err)
	}
	entry.Warnf("Corpus warning: %s", w.Kind)
}
