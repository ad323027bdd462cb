package cpu

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// compile-time interface check.
var _ Hotplug = (*Sysfs)(nil)

// Sysfs drives Linux CPU hotplug through /sys/devices/system/cpu.
type Sysfs struct {
	root string
}

// NewSysfs creates a Sysfs hotplug driver. An empty root defaults to the
// real sysfs location.
func NewSysfs(root string) *Sysfs {
	if root == "" {
		root = "/sys/devices/system/cpu"
	}
	return &Sysfs{root: root}
}

// Online parses the kernel's online-core list (e.g. "0-3,5").
func (s *Sysfs) Online() ([]int, error) {
	return s.readList("online")
}

// Possible returns the size of the possible-core list.
func (s *Sysfs) Possible() (int, error) {
	ids, err := s.readList("possible")
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// IsOnline reads cpuN/online. CPU 0 has no online file on most systems and
// is always online.
func (s *Sysfs) IsOnline(id int) (bool, error) {
	raw, err := os.ReadFile(s.onlinePath(id)) //nolint:gosec // fixed sysfs layout
	if err != nil {
		if os.IsNotExist(err) && id == 0 {
			return true, nil
		}
		return false, fmt.Errorf("read online state of cpu%d: %w", id, err)
	}
	return strings.TrimSpace(string(raw)) == "1", nil
}

// Down writes 0 to cpuN/online.
func (s *Sysfs) Down(id int) error {
	return s.writeOnline(id, "0")
}

// Up writes 1 to cpuN/online.
func (s *Sysfs) Up(id int) error {
	return s.writeOnline(id, "1")
}

func (s *Sysfs) onlinePath(id int) string {
	return filepath.Join(s.root, fmt.Sprintf("cpu%d", id), "online")
}

func (s *Sysfs) writeOnline(id int, val string) error {
	if err := os.WriteFile(s.onlinePath(id), []byte(val), 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("set cpu%d online=%s: %w", id, val, err)
	}
	return nil
}

// readList parses a sysfs core list file: comma-separated ids and ranges.
func (s *Sysfs) readList(name string) ([]int, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, name)) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("read cpu list %s: %w", name, err)
	}
	return ParseList(strings.TrimSpace(string(raw)))
}

// ParseList parses a kernel CPU list string such as "0-3,5,7-8".
func ParseList(list string) ([]int, error) {
	if list == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(list, ",") {
		lo, hi, found := strings.Cut(part, "-")
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bad cpu list entry %q: %w", part, err)
		}
		end := start
		if found {
			if end, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("bad cpu list entry %q: %w", part, err)
			}
		}
		if end < start {
			return nil, fmt.Errorf("bad cpu list range %q", part)
		}
		for id := start; id <= end; id++ {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
