package shell

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/vroom/trace"
)

// WireVersion is the version of the IPC file format. Both sides refuse files
// carrying any other version, since they may be talking to a mismatched
// vroomfaker binary.
const WireVersion = 1

type wireHeader struct {
	Version int `json:"vroom_ipc"`
}

// Files names the three file-backed lists of the hijack IPC surface: the
// control list the engine writes, and the call log and error list the sibling
// shell writes.
type Files struct {
	Control string
	Log     string
	Error   string
}

// InDir returns the conventional file set inside dir.
func InDir(dir string) Files {
	return Files{
		Control: filepath.Join(dir, "control"),
		Log:     filepath.Join(dir, "log"),
		Error:   filepath.Join(dir, "error"),
	}
}

// FromEnv reads the file set from the process environment, as the vroomfaker
// side sees it.
func FromEnv() (Files, error) {
	files := Files{
		Control: os.Getenv(ControlFileEnv),
		Log:     os.Getenv(LogFileEnv),
		Error:   os.Getenv(ErrorFileEnv),
	}
	if files.Control == "" || files.Log == "" || files.Error == "" {
		return Files{}, fmt.Errorf(
			"shell hijack environment is incomplete (%s, %s, %s must all be set)",
			ControlFileEnv, LogFileEnv, ErrorFileEnv)
	}
	return files, nil
}

// writeRecords rewrites path as a header line followed by one JSON record per
// line. The write is a whole-file atomic replacement, the only discipline the
// single-writer-per-file protocol needs.
func writeRecords(path string, records []json.RawMessage) error {
	var buf bytes.Buffer
	header, err := json.Marshal(wireHeader{Version: WireVersion})
	if err != nil {
		return err
	}
	buf.Write(header)
	buf.WriteByte('\n')
	for _, record := range records {
		buf.Write(record)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".vroom-ipc-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// readRecords reloads path from disk and returns its records. The file is
// mutated out-of-process, so no caching is allowed anywhere above this.
func readRecords(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := bytes.Split(data, []byte("\n"))
	if len(lines) == 0 || len(bytes.TrimSpace(lines[0])) == 0 {
		return nil, fmt.Errorf("ipc file %s has no version header", path)
	}
	var header wireHeader
	if err := json.Unmarshal(lines[0], &header); err != nil {
		return nil, fmt.Errorf("ipc file %s has a malformed header: %w", path, err)
	}
	if header.Version != WireVersion {
		return nil, fmt.Errorf("ipc file %s has version %d, want %d", path, header.Version, WireVersion)
	}
	var records []json.RawMessage
	for _, line := range lines[1:] {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	return records, nil
}

func writeAs[T any](path string, values []T) error {
	records := make([]json.RawMessage, len(values))
	for i, value := range values {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		records[i] = data
	}
	return writeRecords(path, records)
}

func readAs[T any](path string) ([]T, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	values := make([]T, len(records))
	for i, record := range records {
		if err := json.Unmarshal(record, &values[i]); err != nil {
			return nil, fmt.Errorf("ipc file %s has a malformed record: %w", path, err)
		}
	}
	return values, nil
}

// WriteControl replaces the pending hijack list.
func WriteControl(path string, hijacks []*Hijack) error {
	return writeAs(path, hijacks)
}

// ReadControl reloads the pending hijack list.
func ReadControl(path string) ([]*Hijack, error) {
	return readAs[*Hijack](path)
}

// WriteLog replaces the call log.
func WriteLog(path string, entries []trace.Entry) error {
	return writeAs(path, entries)
}

// ReadLog reloads the call log.
func ReadLog(path string) ([]trace.Entry, error) {
	return readAs[trace.Entry](path)
}

// WriteErrors replaces the harness error list.
func WriteErrors(path string, errors []string) error {
	return writeAs(path, errors)
}

// ReadErrors reloads the harness error list.
func ReadErrors(path string) ([]string, error) {
	return readAs[string](path)
}
