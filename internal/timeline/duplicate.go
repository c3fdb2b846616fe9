package timeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/timmy/narrator/internal/domain"
)

// FileDuplicator copies clips into a duplicates directory under the job.
type FileDuplicator struct {
	Dir string
}

func (d FileDuplicator) Duplicate(clip domain.VisualAsset) (domain.VisualAsset, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return clip, fmt.Errorf("create duplicates dir: %w", err)
	}
	dst := filepath.Join(d.Dir, uuid.NewString()+"_"+filepath.Base(clip.Path))
	if err := copyFile(clip.Path, dst); err != nil {
		return clip, err
	}
	clip.Path = dst
	return clip, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open clip: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create duplicate: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy clip: %w", err)
	}
	return out.Close()
}

// VirtualDuplicator names instances without touching the filesystem. It
// is used for planning.
type VirtualDuplicator struct {
	mu sync.Mutex
	n  map[string]int
}

func (d *VirtualDuplicator) Duplicate(clip domain.VisualAsset) (domain.VisualAsset, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.n == nil {
		d.n = make(map[string]int)
	}
	d.n[clip.Path]++
	clip.Path = clip.Path + "#" + strconv.Itoa(d.n[clip.Path])
	return clip, nil
}
