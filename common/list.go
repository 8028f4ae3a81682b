package common

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const listCommentPrefix = "#"

// ReadProductList reads product identifiers from r, one per line, in order.
// Blank lines and lines starting with '#' are ignored.
func ReadProductList(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, listCommentPrefix) {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ReadProductList: %w", err)
	}
	return ids, nil
}

// ReadProductListFile reads product identifiers from the file at path
func ReadProductListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadProductListFile: %w", err)
	}
	defer f.Close()
	return ReadProductList(f)
}

// WriteProductList writes product identifiers to w, one per line
func WriteProductList(w io.Writer, ids []string) error {
	for _, id := range ids {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return fmt.Errorf("WriteProductList: %w", err)
		}
	}
	return nil
}

// WriteProductListFile writes product identifiers to the file at path
func WriteProductListFile(path string, ids []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteProductListFile: %w", err)
	}
	defer f.Close()
	if err := WriteProductList(f, ids); err != nil {
		return fmt.Errorf("WriteProductListFile: %w", err)
	}
	return f.Close()
}
