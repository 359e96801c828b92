package toolsutil

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/elee1766/stepwise/src/shell"
)

func TestProcessReport(t *testing.T) {
	tests := []struct {
		name string
		res  shell.Result
		want string
	}{
		{"stdout only", shell.Result{Stdout: "hi\n"}, "hi\n"},
		{"stderr only", shell.Result{Stderr: "bad\n"}, "stderr:\nbad\n"},
		{"both", shell.Result{Stdout: "out", Stderr: "err\n"}, "out\nstderr:\nerr\n"},
		{"exit status", shell.Result{Stdout: "x\n", ExitCode: 2}, "x\nexit status 2"},
		{"nothing", shell.Result{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProcessReport(&tt.res); got != tt.want {
				t.Errorf("ProcessReport() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCombinedOutput(t *testing.T) {
	if got := CombinedOutput(&shell.Result{Stdout: "a", Stderr: "b"}); got != "a\nb" {
		t.Errorf("CombinedOutput() = %q", got)
	}
	if got := CombinedOutput(&shell.Result{Stdout: "a\n"}); got != "a\n" {
		t.Errorf("CombinedOutput() = %q", got)
	}
}

func TestTimeout(t *testing.T) {
	def := 30 * time.Second
	if got := Timeout(0, def); got != def {
		t.Errorf("Timeout(0) = %v", got)
	}
	if got := Timeout(5, def); got != 5*time.Second {
		t.Errorf("Timeout(5) = %v", got)
	}
	if got := Timeout(100000, def); got != MaxTimeout {
		t.Errorf("Timeout(100000) = %v", got)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := FormatBytes(512); got != "512 B" {
		t.Errorf("FormatBytes(512) = %q", got)
	}
	if got := FormatBytes(2048); got != "2.0 KB" {
		t.Errorf("FormatBytes(2048) = %q", got)
	}
}

func TestCheckPath(t *testing.T) {
	for _, p := range []string{"/work/notes.txt", "relative/file", "/etc/hosts", "/home/u/.ssh/config"} {
		if err := CheckPath(p); err != nil {
			t.Errorf("CheckPath(%q) = %v, want nil", p, err)
		}
	}
	for _, p := range []string{"/proc/self/environ", "/sys", "/etc/shadow", "/root/.ssh/id_ed25519", "/dev/../dev/sda", "a\x00b"} {
		if err := CheckPath(p); !errors.Is(err, ErrUnsafePath) {
			t.Errorf("CheckPath(%q) = %v, want ErrUnsafePath", p, err)
		}
	}
}

func TestValidateFileSize(t *testing.T) {
	if err := ValidateFileSize(MaxFileSize); err != nil {
		t.Errorf("ValidateFileSize(max) = %v", err)
	}
	if err := ValidateFileSize(MaxFileSize + 1); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("ValidateFileSize(max+1) = %v", err)
	}
}

func TestIsTextFile(t *testing.T) {
	if !IsTextFile(nil) {
		t.Error("empty content should be text")
	}
	if !IsTextFile([]byte("héllo\n")) {
		t.Error("utf-8 should be text")
	}
	if IsTextFile([]byte{0x89, 'P', 'N', 'G', 0, 0}) {
		t.Error("binary should not be text")
	}
	// a two byte rune straddling the 8KB boundary
	long := append(bytes.Repeat([]byte("a"), 8191), []byte("é")...)
	if !IsTextFile(long) {
		t.Error("rune cut at the sample boundary should still be text")
	}
}
