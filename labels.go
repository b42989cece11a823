package headcount

import (
	"bufio"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultPersonClass is the index of the person class in COCO trained models
const DefaultPersonClass = 0

// LoadLabels reads the labels used to train the Model from the given text file.
// It should contain one label per line.
func LoadLabels(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, errors.Wrap(err, "error opening labels file")
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		labels = append(labels, line)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading labels file")
	}

	return labels, nil
}

// ClassIndex returns the line number of name in labels, compared case
// insensitively. Without labels the COCO person index is assumed.
func ClassIndex(labels []string, name string) (int, error) {

	if len(labels) == 0 {
		if strings.EqualFold(name, "person") {
			return DefaultPersonClass, nil
		}
		return -1, errors.Newf("no labels loaded to look up class %q", name)
	}

	for i, l := range labels {
		if strings.EqualFold(l, name) {
			return i, nil
		}
	}

	return -1, errors.Newf("class %q not found in %d labels", name, len(labels))
}
