package selector

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
)

// Files walks directories and collects regular files to send.
type Files struct {
	dir      string
	filter   string
	page     int
	selected map[string]int64
	bytes    int64
}

func NewFiles(dir string) *Files {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return &Files{
		dir:      abs,
		selected: make(map[string]int64),
	}
}

// entries lists the current directory, directories first, then by
// case-insensitive name, narrowed by the filter.
func (f *Files) entries() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	if f.filter == "" {
		return entries, nil
	}

	needle := strings.ToLower(f.filter)
	filtered := entries[:0]
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name()), needle) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Run prompts until the user picks Done or Cancel.
func (f *Files) Run() error {
	for {
		entries, err := f.entries()
		if err != nil {
			return err
		}

		var choice string
		err = huh.NewSelect[string]().
			Title(f.title()).
			Options(f.options(entries)...).
			Value(&choice).
			Height(20).
			Run()
		if err != nil {
			return err
		}

		switch choice {
		case optCancel:
			return ErrCanceled
		case optDone:
			return nil
		case optFilter:
			if err := f.askFilter(); err != nil {
				return err
			}
		case optPrev:
			f.page--
		case optNext:
			f.page++
		case optPageInfo:
		default:
			if err := f.choose(choice); err != nil {
				return err
			}
		}
	}
}

func (f *Files) title() string {
	title := fmt.Sprintf("Choose files (%d selected, %d bytes):", len(f.selected), f.bytes)
	if f.filter != "" {
		title += fmt.Sprintf(" [Filter: %s]", f.filter)
	}
	return title
}

func (f *Files) options(entries []os.DirEntry) []huh.Option[string] {
	var total int
	total, f.page = pages(len(entries), f.page)

	var options []huh.Option[string]
	if parent := filepath.Dir(f.dir); parent != f.dir {
		options = append(options, huh.NewOption("../", parent))
	}

	filterText := "Filter files"
	if f.filter != "" {
		filterText = fmt.Sprintf("Filter: '%s'", f.filter)
	}
	options = append(options, huh.NewOption(filterText, optFilter))

	if total > 1 {
		info := fmt.Sprintf("Page %d of %d (%d items)", f.page+1, total, len(entries))
		options = append(options, huh.NewOption(pageStyle.Render(info), optPageInfo))
		if f.page > 0 {
			options = append(options, huh.NewOption("<-", optPrev))
		}
		if f.page < total-1 {
			options = append(options, huh.NewOption("->", optNext))
		}
	}

	start := f.page * PageSize
	end := min(start+PageSize, len(entries))
	for _, e := range entries[start:end] {
		path := filepath.Join(f.dir, e.Name())
		label := e.Name()
		if e.IsDir() {
			label = dirStyle.Render(label + "/")
		}
		if _, ok := f.selected[path]; ok {
			label = selectedStyle.Render("✓ " + label)
		}
		options = append(options, huh.NewOption(label, path))
	}

	return append(options,
		huh.NewOption("Done", optDone),
		huh.NewOption("Cancel", optCancel),
	)
}

func (f *Files) askFilter() error {
	var filter string

	err := huh.NewInput().
		Title("Filter:").
		Value(&filter).
		Placeholder(f.filter).
		Run()
	if err != nil {
		return err
	}

	f.filter = strings.TrimSpace(filter)
	f.page = 0
	return nil
}

func (f *Files) choose(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	if !info.IsDir() {
		f.Toggle(path, info.Size())
		return nil
	}

	var action string
	err = huh.NewSelect[string]().
		Title(fmt.Sprintf("Directory: %s", filepath.Base(path))).
		Options(
			huh.NewOption("Open", "open"),
			huh.NewOption("Select all files", "all"),
			huh.NewOption("Back", "back"),
		).
		Value(&action).
		Run()
	if err != nil {
		return nil
	}

	switch action {
	case "open":
		f.dir = path
		f.page = 0
		f.filter = ""
	case "all":
		return f.SelectDir(path)
	}
	return nil
}

// Toggle selects path, or deselects it when it already is.
func (f *Files) Toggle(path string, size int64) {
	if prev, ok := f.selected[path]; ok {
		f.bytes -= prev
		delete(f.selected, path)
		return
	}
	f.bytes += size
	f.selected[path] = size
}

// SelectDir selects every regular file under dir. Only flat file names go
// over the wire, so nested files keep their base name on the receiver.
func (f *Files) SelectDir(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if _, ok := f.selected[path]; !ok {
			f.Toggle(path, info.Size())
		}
		return nil
	})
}

// Paths returns the selection sorted.
func (f *Files) Paths() []string {
	paths := make([]string, 0, len(f.selected))
	for path := range f.selected {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (f *Files) Bytes() int64 {
	return f.bytes
}
