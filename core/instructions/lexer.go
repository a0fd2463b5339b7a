package instructions

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	pagemanager "github.com/sushant-115/pagesim/core/memory/page_manager"
)

var ErrMalformedInstruction = errors.New("malformed instruction")

var (
	newPattern    = regexp.MustCompile(`^new\((\d+),\s*(\d+)\)$`)
	usePattern    = regexp.MustCompile(`^use\((\d+)\)$`)
	deletePattern = regexp.MustCompile(`^delete\((\d+)\)$`)
	killPattern   = regexp.MustCompile(`^kill\((\d+)\)$`)
)

// Parse reads one instruction per line. Surrounding whitespace and blank
// lines are ignored. Any other line fails the whole input.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		op, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read instructions: %w", err)
	}
	return ops, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(input string) ([]Op, error) {
	return Parse(strings.NewReader(input))
}

// ParseLine parses a single instruction.
func ParseLine(line string) (Op, error) {
	return parseLine(strings.TrimSpace(line))
}

func parseLine(line string) (Op, error) {
	if m := newPattern.FindStringSubmatch(line); m != nil {
		pid, err := parseUint(m[1])
		if err != nil {
			return Op{}, err
		}
		size, err := parseUint(m[2])
		if err != nil {
			return Op{}, err
		}
		return New(pagemanager.ProcessID(pid), int(size)), nil
	}
	if m := usePattern.FindStringSubmatch(line); m != nil {
		ptr, err := parseUint(m[1])
		if err != nil {
			return Op{}, err
		}
		return Use(pagemanager.PointerID(ptr)), nil
	}
	if m := deletePattern.FindStringSubmatch(line); m != nil {
		ptr, err := parseUint(m[1])
		if err != nil {
			return Op{}, err
		}
		return Delete(pagemanager.PointerID(ptr)), nil
	}
	if m := killPattern.FindStringSubmatch(line); m != nil {
		pid, err := parseUint(m[1])
		if err != nil {
			return Op{}, err
		}
		return Kill(pagemanager.ProcessID(pid)), nil
	}
	return Op{}, fmt.Errorf("%w: %q", ErrMalformedInstruction, line)
}

func parseUint(s string) (uint64, error) {
	// int64 range keeps the value valid for both ids and sizes.
	v, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: number %s out of range", ErrMalformedInstruction, s)
	}
	return v, nil
}
