// Package export writes RangeQuery results to CSV, optionally piped through
// an external zstd process for compression, for use by cmd/riocctl and by
// any caller that wants to dump a range onto disk.
package export

import (
	"encoding/hex"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/hpkv-io/rioc/tracker"
)

// Row is one RangeQuery entry, shaped for gocsv. Key and Value are
// hex-encoded since either may hold arbitrary binary data.
type Row struct {
	Key   string `csv:"key"`
	Value string `csv:"value"`
}

// RowsOf converts decoded range entries into CSV rows.
func RowsOf(entries []tracker.RangeEntry) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{Key: hex.EncodeToString(e.Key), Value: hex.EncodeToString(e.Value)}
	}
	return rows
}

// WriteCSV marshals entries as CSV onto w.
func WriteCSV(entries []tracker.RangeEntry, w io.Writer) error {
	return gocsv.Marshal(RowsOf(entries), w)
}

// osPipe is indirected for whitebox mocking in tests, as in the compression
// helper this package is modeled on.
var osPipe = os.Pipe

type waitingWriteCloser struct {
	io.WriteCloser
	wg *sync.WaitGroup
}

func (w waitingWriteCloser) Close() error {
	err := w.WriteCloser.Close()
	if err != nil {
		return err
	}
	w.wg.Wait()
	return nil
}

// NewCompressedWriter opens filename and returns a WriteCloser that pipes
// everything written to it through an external zstd process before it lands
// on disk. Close waits for the compression process to finish.
func NewCompressedWriter(filename string) (io.WriteCloser, error) {
	var wg sync.WaitGroup
	wg.Add(1)

	pipeR, pipeW, err := osPipe()
	if err != nil {
		return nil, err
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command("zstd")
	cmd.Stdin = pipeR
	cmd.Stdout = f

	go func() {
		if err := cmd.Run(); err != nil {
			log.Println("zstd compression error for", filename, ":", err)
		}
		pipeR.Close()
		f.Close()
		wg.Done()
	}()

	return waitingWriteCloser{pipeW, &wg}, nil
}

// WriteCompressedCSV marshals entries as CSV and writes the result through a
// zstd-compressing pipe to filename.
func WriteCompressedCSV(entries []tracker.RangeEntry, filename string) error {
	w, err := NewCompressedWriter(filename)
	if err != nil {
		return err
	}
	if err := WriteCSV(entries, w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
