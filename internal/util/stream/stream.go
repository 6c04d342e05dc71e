// Package stream merges output streams of a remote process into a single
// sequence of lines and normalizes them for logging.
package stream

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"sync"
)

var whitespace = regexp.MustCompile(`\s+`)

// MergeLines reads lines from every source concurrently and delivers them on
// the returned channel. Lines from a single source keep their original order;
// ordering between sources is best-effort only. The channel is closed once
// every source has been fully drained, so no trailing lines are lost and a
// source that stays silent cannot stall delivery from the others. Line length
// is unbounded.
//
// Read errors end that source's contribution; the remote session's exit
// status is the authoritative failure signal, not a torn stream.
func MergeLines(sources ...io.Reader) <-chan string {
	lines := make(chan string)

	var wg sync.WaitGroup
	for _, source := range sources {
		wg.Add(1)
		go func(r io.Reader) {
			defer wg.Done()
			reader := bufio.NewReader(r)
			for {
				line, err := reader.ReadString('\n')
				if line = strings.TrimRight(line, "\r\n"); line != "" || err == nil {
					lines <- line
				}
				if err != nil {
					return
				}
			}
		}(source)
	}

	go func() {
		wg.Wait()
		close(lines)
	}()

	return lines
}

// FlattenWhitespace collapses runs of whitespace into single spaces and trims
// the result. Returns "" for lines that contain only whitespace; callers drop
// those before logging.
func FlattenWhitespace(line string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(line), " ")
}
