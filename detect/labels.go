package detect

import (
	"bufio"
	"fmt"
	"github.com/pkg/errors"
	"os"
	"strings"
)

// LoadLabels reads the labels used to train the Model from the given text file.
// It should contain one label per line, the line number being the class ID.
func LoadLabels(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, errors.Wrap(err, "error opening labels file")
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		labels = append(labels, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading labels file")
	}

	// drop trailing blank lines so they don't become classes
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	if len(labels) == 0 {
		return nil, errors.Errorf("labels file %s is empty", file)
	}

	return labels, nil
}

// labelName returns the class name for the given ID, or a placeholder name if
// the ID is outside of the labels list
func labelName(labels []string, id int) string {

	if id >= 0 && id < len(labels) {
		return labels[id]
	}

	return fmt.Sprintf("class_%d", id)
}
