// Package par reads and writes provider archives: a gzip compressed tar
// holding a claims manifest and one native binary per target.
//
//	provider.par
//	├── claims.json
//	└── <arch>-<os>.bin
package par

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

const (
	claimsEntry = "claims.json"
	binSuffix   = ".bin"
)

// archiveTime is stamped on every entry so identical content yields
// identical archives.
var archiveTime = time.Unix(0, 0).UTC()

// ErrInvalidTarget reports a target not in ARCH-OS form.
var ErrInvalidTarget = errors.New("target must be ARCH-OS, e.g. x86_64-linux")

// Claims describes the provider an archive carries.
type Claims struct {
	Name     string `json:"name" yaml:"name"`
	CapID    string `json:"capid" yaml:"capid"`
	Vendor   string `json:"vendor" yaml:"vendor"`
	Revision int32  `json:"rev,omitempty" yaml:"rev,omitempty"`
	Version  string `json:"ver,omitempty" yaml:"ver,omitempty"`
}

// Archive is a provider archive held in memory.
type Archive struct {
	Claims  Claims
	Targets map[string][]byte
}

// New returns an empty archive for claims.
func New(claims Claims) *Archive {
	return &Archive{Claims: claims, Targets: map[string][]byte{}}
}

// Insert adds or replaces the binary for target.
func (a *Archive) Insert(target string, binary []byte) error {
	if err := validTarget(target); err != nil {
		return err
	}
	if a.Targets == nil {
		a.Targets = map[string][]byte{}
	}
	a.Targets[target] = binary
	return nil
}

// TargetNames returns the supported targets in sorted order.
func (a *Archive) TargetNames() []string {
	names := make([]string, 0, len(a.Targets))
	for name := range a.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary is the inspectable view of an archive.
type Summary struct {
	Claims  Claims   `json:"claims" yaml:"claims"`
	Targets []string `json:"targets" yaml:"targets"`
}

// Summarize returns the claims and supported targets.
func (a *Archive) Summarize() Summary {
	return Summary{Claims: a.Claims, Targets: a.TargetNames()}
}

// Text renders the summary for humans.
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", s.Claims.Name)
	fmt.Fprintf(&b, "Capability contract ID: %s\n", s.Claims.CapID)
	fmt.Fprintf(&b, "Vendor: %s\n", s.Claims.Vendor)
	if s.Claims.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", s.Claims.Version)
	}
	if s.Claims.Revision != 0 {
		fmt.Fprintf(&b, "Revision: %d\n", s.Claims.Revision)
	}
	fmt.Fprintf(&b, "Supported targets: %v", s.Targets)
	return b.String()
}

func validTarget(target string) error {
	arch, goos, ok := strings.Cut(target, "-")
	if !ok || arch == "" || goos == "" || strings.ContainsAny(target, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	return nil
}

// Encode writes the archive to w.
func (a *Archive) Encode(w io.Writer) error {
	if strings.TrimSpace(a.Claims.CapID) == "" {
		return errors.New("archive claims need a capability contract id")
	}
	if len(a.Targets) == 0 {
		return errors.New("archive needs at least one target binary")
	}
	claims, err := json.Marshal(a.Claims)
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)
	if err := writeEntry(tw, claimsEntry, claims); err != nil {
		return err
	}
	for _, target := range a.TargetNames() {
		if err := writeEntry(tw, target+binSuffix, a.Targets[target]); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: archiveTime,
	}
	if strings.HasSuffix(name, binSuffix) {
		hdr.Mode = 0o755
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Decode reads an archive from r.
func Decode(r io.Reader) (*Archive, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("not a provider archive: %w", err)
	}
	defer zr.Close()
	tr := tar.NewReader(zr)
	a := &Archive{Targets: map[string][]byte{}}
	haveClaims := false
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		switch {
		case hdr.Name == claimsEntry:
			if err := json.Unmarshal(buf.Bytes(), &a.Claims); err != nil {
				return nil, fmt.Errorf("decode claims: %w", err)
			}
			haveClaims = true
		case strings.HasSuffix(hdr.Name, binSuffix):
			target := strings.TrimSuffix(hdr.Name, binSuffix)
			if err := validTarget(target); err != nil {
				return nil, err
			}
			a.Targets[target] = buf.Bytes()
		}
	}
	if !haveClaims {
		return nil, fmt.Errorf("archive has no %s", claimsEntry)
	}
	return a, nil
}

// Load reads the archive at path.
func Load(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	a, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Save writes the archive to path through a temporary file renamed into
// place, so a failed write leaves any previous archive intact.
func (a *Archive) Save(path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create archive in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = a.Encode(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// DefaultOutput names the archive created for binary when no output path is
// given: the binary's file stem with a .par extension.
func DefaultOutput(binary string) string {
	base := filepath.Base(binary)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".par"
}
