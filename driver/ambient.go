package driver

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danjacques/gofslock/fslock"
	djtimes "github.com/djherbis/times"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/profile"
	"github.com/shirou/gopsutil/mem"

	"github.com/svfront/driver/diag"
	"github.com/svfront/driver/internal/base"
	"github.com/svfront/driver/source"
)

var LogProfiling = base.NewLogCategory("profiling")

// StartProfiling enables pprof CPU profiling of this process for
// --profile, grounded on utils/Profiling_Enabled.go's
// StartProfiling/PurgeProfiling pair (profile.Start/.Stop bracketing the
// run, NoShutdownHook since the driver manages its own exit path). A
// no-op stop function is returned when enabled is false so callers can
// unconditionally `defer driver.StartProfiling(...)()`.
func StartProfiling(enabled bool) func() {
	if !enabled {
		return func() {}
	}
	base.LogInfo(LogProfiling, "cpu profiling enabled, writing to ./cpu.pprof")
	stop := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	return stop.Stop
}

// PrintSummary prints the --summary post-run timing line: file count,
// thread count, elapsed wall time, the most recently modified source
// file's mtime, and host memory in use — grounded on
// utils/BuildStats.go/CommandEnv.go's PrintSummary, generalized from
// "build node statistics" to "this run's source/timing statistics".
// Memory and file-time probes degrade silently (best-effort diagnostics,
// never a reason to fail the run).
func PrintSummary(w io.Writer, buffers []*source.Buffer, threads int, elapsed time.Duration) {
	fmt.Fprintf(w, "summary: %d file(s), %d thread(s), %s elapsed\n",
		len(buffers), threads, elapsed.Round(time.Millisecond))

	var newest time.Time
	var newestPath string
	for _, buf := range buffers {
		ts, err := djtimes.Stat(buf.Path)
		if err != nil {
			continue
		}
		if ts.ModTime().After(newest) {
			newest = ts.ModTime()
			newestPath = buf.Path
		}
	}
	if newestPath != "" {
		fmt.Fprintf(w, "summary: most recently modified source: %s (%s)\n", newestPath, newest.Format(time.RFC3339))
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(w, "summary: host memory: %d/%d MiB used\n", vm.Used/(1<<20), vm.Total/(1<<20))
	}
}

type diagnosticRecord struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

type diagnosticsDump struct {
	Severities  map[string]string  `json:"severities"`
	Diagnostics []diagnosticRecord `json:"diagnostics"`
}

// DumpDiagnosticsJSON serializes table's resolved severities and every
// diagnostic engine has issued to path as JSON, via goccy/go-json
// (grounded on utils/Json.go's JsonSerialize helper, this codebase's
// universal structured-dump encoder). A ".gz" suffix compresses the
// output with klauspost/compress's drop-in gzip writer. An
// advisory gofslock guards the write against a concurrent run targeting
// the same shared report path (e.g. two CI jobs writing to a common
// artifacts directory).
func DumpDiagnosticsJSON(path string, table *diag.Table, engine *diag.Engine) error {
	lock, err := fslock.Lock(path + ".lock")
	if err != nil {
		return fmt.Errorf("dump-diagnostics-json: acquiring lock: %w", err)
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump-diagnostics-json: %w", err)
	}
	defer f.Close()

	var out io.Writer = f
	if len(path) > 3 && path[len(path)-3:] == ".gz" {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		out = gz
	}

	dump := diagnosticsDump{Severities: map[string]string{}}
	for _, kind := range table.SortedKinds() {
		dump.Severities[string(kind)] = table.Severity(kind).String()
	}
	for _, d := range engine.Issued() {
		dump.Diagnostics = append(dump.Diagnostics, diagnosticRecord{
			Kind: string(d.Kind), Severity: d.Severity.String(), Message: d.Message,
			Path: d.Path, Line: d.Line, Column: d.Column,
		})
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(dump)
}
