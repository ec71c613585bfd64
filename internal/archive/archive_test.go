package archive

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const fakeTool = `#!/bin/sh
out=""
for a in "$@"; do
	case "$a" in
	-pbad) echo "Wrong password" >&2; exit 2 ;;
	-pcode) exit 7 ;;
	-o*) out="${a#-o}" ;;
	esac
done
echo "$@" > "$out/args.txt"
echo "Everything is Ok"
`

type tracker struct{ dirs []string }

func (t *tracker) TrackExtractedDir(dir string) { t.dirs = append(t.dirs, dir) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExtractor(t *testing.T, withTool bool) (*Extractor, *tracker) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake extraction tool is a shell script")
	}
	t.Setenv("PATH", "")
	t.Setenv("ProgramFiles", "")
	t.Setenv("ProgramFiles(x86)", "")

	resources := t.TempDir()
	if withTool {
		bin := filepath.Join(resources, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(bin, "7za"), []byte(fakeTool), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	tr := &tracker{}
	return &Extractor{
		ResourcesDir: resources,
		ExeDir:       filepath.Join(t.TempDir(), "app"),
		Tracker:      tr,
		Open:         func(string) error { return nil },
		logger:       testLogger(),
	}, tr
}

func writeArchive(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("7z"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLocateTool(t *testing.T) {
	x, _ := newTestExtractor(t, true)
	want := filepath.Join(x.ResourcesDir, "bin", "7za")
	if got := x.LocateTool(); got != want {
		t.Errorf("LocateTool() = %q, want %q", got, want)
	}

	x, _ = newTestExtractor(t, false)
	if got := x.LocateTool(); got != "" {
		t.Errorf("LocateTool() = %q, want empty", got)
	}
}

func TestCandidatesOrder(t *testing.T) {
	t.Setenv("ProgramFiles", "/pf")
	t.Setenv("ProgramFiles(x86)", "/pf86")
	x := &Extractor{ResourcesDir: "/res", ExeDir: "/app/current"}

	got := x.candidates()
	first := filepath.Join("/res", "bin", "7za.exe")
	last := filepath.Join("/pf86", "7-Zip", "7z.exe")
	if got[0] != first {
		t.Errorf("first candidate = %q, want %q", got[0], first)
	}
	if got[len(got)-1] != last {
		t.Errorf("last candidate = %q, want %q", got[len(got)-1], last)
	}
	joined := strings.Join(got, "|")
	if !strings.Contains(joined, filepath.Join("/app", "bin", "7za.exe")) {
		t.Error("parent bin directory should be searched")
	}
}

func TestExtract(t *testing.T) {
	x, tr := newTestExtractor(t, true)
	dir := t.TempDir()
	archive := writeArchive(t, dir, "my_tool.7z")

	stale := filepath.Join(dir, "my tool")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := x.Extract(context.Background(), archive, "secret", "")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	wantDir := filepath.Join(dir, "my_tool")
	if res.Dir != wantDir {
		t.Errorf("Dir = %q, want %q", res.Dir, wantDir)
	}
	if res.Output != "Everything is Ok" {
		t.Errorf("Output = %q", res.Output)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("space alias of the output directory should be purged")
	}
	if len(tr.dirs) != 1 || tr.dirs[0] != wantDir {
		t.Errorf("tracked = %v, want [%s]", tr.dirs, wantDir)
	}

	args, err := os.ReadFile(filepath.Join(wantDir, "args.txt"))
	if err != nil {
		t.Fatalf("tool did not run: %v", err)
	}
	want := "x " + archive + " -psecret -o" + wantDir + " -y"
	if strings.TrimSpace(string(args)) != want {
		t.Errorf("args = %q, want %q", strings.TrimSpace(string(args)), want)
	}
}

func TestExtract_ExplicitDestination(t *testing.T) {
	x, _ := newTestExtractor(t, true)
	archive := writeArchive(t, t.TempDir(), "a.zip")
	dest := filepath.Join(t.TempDir(), "out")

	res, err := x.Extract(context.Background(), archive, "", dest)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Dir != dest {
		t.Errorf("Dir = %q, want %q", res.Dir, dest)
	}
	args, _ := os.ReadFile(filepath.Join(dest, "args.txt"))
	if strings.Contains(string(args), "-p") {
		t.Errorf("password flag should be omitted, got %q", args)
	}
}

func TestExtract_Failures(t *testing.T) {
	x, _ := newTestExtractor(t, true)
	archive := writeArchive(t, t.TempDir(), "locked.7z")

	_, err := x.Extract(context.Background(), archive, "bad", "")
	if err == nil || err.Error() != "Wrong password" {
		t.Errorf("err = %v, want stderr text", err)
	}

	_, err = x.Extract(context.Background(), archive, "code", "")
	if err == nil || err.Error() != "7za exited with code 7" {
		t.Errorf("err = %v, want exit code message", err)
	}

	if _, err := x.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), "", ""); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestExtract_NoToolOpensDirectly(t *testing.T) {
	x, tr := newTestExtractor(t, false)
	var opened string
	x.Open = func(p string) error {
		opened = p
		return nil
	}
	archive := writeArchive(t, t.TempDir(), "a.rar")

	res, err := x.Extract(context.Background(), archive, "", "")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !res.Opened || res.Output != OpenedDirectlyMessage {
		t.Errorf("result = %+v", res)
	}
	if opened != archive {
		t.Errorf("opened = %q, want %q", opened, archive)
	}
	if len(tr.dirs) != 0 {
		t.Error("nothing should be tracked when the archive is opened directly")
	}
}

func TestOutputDir(t *testing.T) {
	if got := OutputDir("/d/tool.zip", ""); got != filepath.Join("/d", "tool") {
		t.Errorf("OutputDir() = %q", got)
	}
	if got := OutputDir("/d/tool.zip", "/x"); got != "/x" {
		t.Errorf("OutputDir() = %q", got)
	}
}
