package storage

import (
	"path"
	"sort"
	"strings"
	"time"
)

// UsageFile is one object in a usage report.
type UsageFile struct {
	Name      string    `json:"name" yaml:"name"`
	URL       string    `json:"url" yaml:"url"`
	Size      int64     `json:"size" yaml:"size"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// FolderUsage sums the objects of one top level folder.
type FolderUsage struct {
	Files []UsageFile `json:"files" yaml:"files"`
	Size  int64       `json:"size" yaml:"size"`
}

// UsageReport maps folder name to its usage.
type UsageReport map[string]*FolderUsage

// TotalSize is the sum over every folder.
func (r UsageReport) TotalSize() int64 {
	var total int64
	for _, f := range r {
		total += f.Size
	}
	return total
}

// Aggregate groups a listing by top level folder. It is pure: the same listing always
// produces the same report, files ordered by key.
func Aggregate(objects []ObjectInfo, url func(key string) string) UsageReport {
	sorted := make([]ObjectInfo, len(objects))
	copy(sorted, objects)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	report := make(UsageReport)
	for _, obj := range sorted {
		folder := OthersFolder
		if i := strings.Index(obj.Key, "/"); i > 0 {
			folder = obj.Key[:i]
		}
		usage, ok := report[folder]
		if !ok {
			usage = &FolderUsage{Files: []UsageFile{}}
			report[folder] = usage
		}
		usage.Files = append(usage.Files, UsageFile{
			Name:      path.Base(obj.Key),
			URL:       url(obj.Key),
			Size:      obj.Size,
			CreatedAt: obj.CreatedAt,
		})
		usage.Size += obj.Size
	}
	return report
}
