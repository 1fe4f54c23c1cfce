package vscpu

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TestCase is one entry of the oracle's JSON case file: values expected to
// appear somewhere in the program's output cells, values expected NOT to
// appear, and the combined pass/fail record Check fills in. Grounded on
// original_source/check_outs.py's case dictionaries, where match/no_match
// are plain lists of value strings searched for across the whole captured
// region rather than addresses keyed to an expected value.
type TestCase struct {
	Name    string              `json:"name"`
	Match   []string            `json:"match"`
	NoMatch []string            `json:"no_match"`
	Found   []map[string]string `json:"found"`
}

// LoadCases reads the oracle's case file (a JSON array of TestCase).
func LoadCases(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cases []TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// SaveCases writes cases back out as indented JSON, mirroring
// check_outs.py's rewrite of the case file with its filled-in "found".
func SaveCases(path string, cases []TestCase) error {
	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// dumpEntry is one parsed "addr: value" line from a decimal memory dump,
// in file order.
type dumpEntry struct {
	addr  uint32
	value string
}

// readDumpEntries parses every "addr: value" line of a decimal memory dump
// in ascending file order, as written by Memory.DumpDecimal.
func readDumpEntries(path string) ([]dumpEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []dumpEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		addrStr, valStr, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		addr, err := parseNumber(strings.TrimSpace(addrStr))
		if err != nil {
			continue
		}
		entries = append(entries, dumpEntry{addr: addr, value: strings.TrimSpace(valStr)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// getMemory scans a decimal dump's entries, in ascending address order,
// until it passes AddrNegScratch — the start of VSCPU's reserved block —
// then walks backward from there collecting value strings while the
// address gap between successive entries stays within 10. That backward
// run is the contiguous block of the program's own output cells sitting
// immediately below the reserved scratch region. Grounded on
// original_source/check_outs.py's get_memory, which discards addresses
// entirely and keeps only the value column.
func getMemory(path string) ([]string, error) {
	entries, err := readDumpEntries(path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errNoMemoryRegion
	}

	i := 0
	inMemory := false
	preNumber := -1
	var memory []string

	for i >= 0 && i < len(entries) {
		number := int(entries[i].addr)
		switch {
		case uint32(number) >= AddrNegScratch && !inMemory:
			i--
			inMemory = true
		case !inMemory:
			i++
		case inMemory && preNumber < number+10:
			memory = append(memory, entries[i].value)
			i--
		default:
			i = -1
		}
		if i >= 0 {
			preNumber = number
		}
	}

	if len(memory) == 0 {
		return nil, errNoMemoryRegion
	}
	return memory, nil
}

// Check runs one TestCase against a memory dump file, rebuilding Found the
// way find_matches/find_unmatches do in sequence — match results first
// (numeric equality against any captured value), then no_match results
// appended (exact string equality) — and returns whether every entry
// passed. Grounded on original_source/check_outs.py's find_matches and
// find_unmatches.
func Check(tc *TestCase, dumpPath string) (bool, error) {
	memory, err := getMemory(dumpPath)
	if err != nil {
		return false, err
	}

	tc.Found = nil
	allPass := true

	for _, match := range tc.Match {
		want, err := strconv.ParseInt(strings.TrimSpace(match), 10, 64)
		if err != nil {
			return false, fmt.Errorf("%w: match value %q", errBadNumber, match)
		}
		seen := false
		for _, value := range memory {
			got, err := strconv.ParseInt(value, 10, 64)
			if err == nil && got == want {
				seen = true
				break
			}
		}
		if seen {
			tc.Found = append(tc.Found, map[string]string{match: "1"})
		} else {
			tc.Found = append(tc.Found, map[string]string{match: "0"})
			allPass = false
		}
	}

	for _, avoid := range tc.NoMatch {
		seen := false
		for _, value := range memory {
			if value == avoid {
				seen = true
				break
			}
		}
		if seen {
			tc.Found = append(tc.Found, map[string]string{avoid: "0"})
			allPass = false
		} else {
			tc.Found = append(tc.Found, map[string]string{avoid: "1"})
		}
	}

	return allPass, nil
}
