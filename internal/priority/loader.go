// Package priority loads externally maintained priority tier files. Each
// CSV file carries one tier of equipment numbers; the trailing number in
// the filename names the tier (PM_LIST_A220_1.csv holds tier 1). The
// loader is tolerant: a missing directory, a file without the equipment
// column, or an unparseable file costs a log line, never a failed
// generation run.
package priority

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

// equipmentColumn is the header cell naming the equipment-number column,
// matched case-insensitively.
const equipmentColumn = "BFM"

// Lists is one parsed snapshot of the priority tier files.
type Lists struct {
	// Tiers maps equipment number to its tier. Lower tiers rank first.
	// Equipment on several lists keeps its lowest tier.
	Tiers map[string]int
	// Files holds the matched file basenames in tier order.
	Files []string
}

// Load reads the priority lists in dir whose basenames match pattern. A
// missing directory yields an empty snapshot, not an error: schedules then
// fall back to overdue-ness ordering alone.
func Load(dir, pattern string) (*Lists, error) {
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling priority pattern %q: %w", pattern, err)
	}

	lists := &Lists{Tiers: make(map[string]int)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("dir", dir).Msg("Priority directory missing, scheduling without tiers")
			return lists, nil
		}
		return nil, fmt.Errorf("reading priority directory %s: %w", dir, err)
	}

	type candidate struct {
		name   string
		num    int
		hasNum bool
	}
	var files []candidate
	for _, entry := range entries {
		if entry.IsDir() || !matcher.Match(entry.Name()) {
			continue
		}
		num, ok := fileRank(entry.Name())
		files = append(files, candidate{name: entry.Name(), num: num, hasNum: ok})
	}

	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.hasNum != b.hasNum {
			return a.hasNum
		}
		if a.hasNum && a.num != b.num {
			return a.num < b.num
		}
		return a.name < b.name
	})

	maxTier := 0
	for _, f := range files {
		tier := f.num
		if !f.hasNum {
			tier = maxTier + 1
		}
		if tier > maxTier {
			maxTier = tier
		}

		added, err := loadFile(filepath.Join(dir, f.name), tier, lists.Tiers)
		if err != nil {
			log.Warn().Err(err).Str("file", f.name).Msg("Skipping unreadable priority file")
			continue
		}

		lists.Files = append(lists.Files, f.name)
		log.Info().
			Str("file", f.name).
			Int("tier", tier).
			Int("assets", added).
			Msg("Loaded priority list")
	}

	return lists, nil
}

// loadFile reads one tier file into the shared map. Equipment already
// holding a lower tier keeps it.
func loadFile(path string, tier int, tiers map[string]int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	col := -1
	for i, cell := range records[0] {
		cell = strings.TrimSpace(strings.TrimPrefix(cell, "\uFEFF"))
		if strings.EqualFold(cell, equipmentColumn) {
			col = i
			break
		}
	}
	if col == -1 {
		log.Warn().Str("file", filepath.Base(path)).Msg("Priority file has no equipment column")
		return 0, nil
	}

	added := 0
	for _, row := range records[1:] {
		if col >= len(row) {
			continue
		}
		number := normalizeNumber(strings.TrimSpace(row[col]))
		if number == "" {
			continue
		}
		if existing, ok := tiers[number]; ok && existing <= tier {
			continue
		}
		tiers[number] = tier
		added++
	}

	return added, nil
}

// fileRank extracts the trailing digit run of the basename without its
// extension, which names the file's tier.
func fileRank(name string) (int, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	end := len(base)
	for end > 0 && base[end-1] >= '0' && base[end-1] <= '9' {
		end--
	}
	if end == len(base) {
		return 0, false
	}
	n, err := strconv.Atoi(base[end:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// normalizeNumber undoes the spreadsheet artifact of integral equipment
// numbers exported with a trailing fraction ("1234.0"). Zero-padded ids
// carry no dot and pass through untouched.
func normalizeNumber(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}
