package export

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"timbercalc/internal/errors"
)

var billFilePattern = regexp.MustCompile(`^Bill_(.+)_(\d{8}_\d{6})\.(pdf|xlsx)$`)

// Query filters saved bills. Empty fields match everything.
type Query struct {
	// Client is a case-insensitive substring of the client name
	Client string

	// Date is a substring of the yyyyMMdd_HHmmss stamp, e.g. "202312"
	Date string
}

// SavedBill is a bill file found on disk
type SavedBill struct {
	Path      string    `json:"path"`
	FileName  string    `json:"file_name"`
	Client    string    `json:"client"`
	Stamp     string    `json:"stamp"`
	CreatedAt time.Time `json:"created_at"`
	Format    Format    `json:"format"`
	Size      int64     `json:"size"`
}

// ParseFileName extracts client and stamp from a bill file name
func ParseFileName(name string) (SavedBill, bool) {
	m := billFilePattern.FindStringSubmatch(name)
	if m == nil {
		return SavedBill{}, false
	}
	at, err := time.ParseInLocation(timestampLayout, m[2], time.Local)
	if err != nil {
		return SavedBill{}, false
	}
	return SavedBill{
		FileName:  name,
		Client:    m[1],
		Stamp:     m[2],
		CreatedAt: at,
		Format:    Format(m[3]),
	}, true
}

// Search lists saved bills in dir matching q, newest first. A missing
// directory yields no bills.
func Search(dir string, q Query) ([]SavedBill, error) {
	entries, err := os.ReadDir(dir)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Storage("read bill directory", err)
	}

	client := strings.ToLower(strings.TrimSpace(q.Client))
	date := strings.TrimSpace(q.Date)

	var bills []SavedBill
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		bill, ok := ParseFileName(entry.Name())
		if !ok {
			continue
		}
		if client != "" && !strings.Contains(strings.ToLower(bill.Client), client) {
			continue
		}
		if date != "" && !strings.Contains(bill.Stamp, date) {
			continue
		}
		bill.Path = filepath.Join(dir, entry.Name())
		if info, err := entry.Info(); err == nil {
			bill.Size = info.Size()
		}
		bills = append(bills, bill)
	}

	sort.SliceStable(bills, func(i, j int) bool {
		if bills[i].Stamp != bills[j].Stamp {
			return bills[i].Stamp > bills[j].Stamp
		}
		return bills[i].FileName < bills[j].FileName
	})
	return bills, nil
}
