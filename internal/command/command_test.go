package command

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestCommand_Builder(t *testing.T) {
	c := New("pandoc").
		Flag("from", "docx").
		Flag("skip", "").
		Arg("--to").Arg("plain").
		Arg("/tmp/my file.docx")
	want := []string{"--from=docx", "--to", "plain", "/tmp/my file.docx"}
	if strings.Join(c.Args, "|") != strings.Join(want, "|") {
		t.Fatalf("args=%q want %q", c.Args, want)
	}
	if got := c.String(); got != `pandoc --from=docx --to plain "/tmp/my file.docx"` {
		t.Fatalf("String()=%q", got)
	}
}

func TestExecRunner_CapturesStreamsAndExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	res, err := ExecRunner{}.Run(context.Background(), New("sh").Arg("-c").Arg("echo out; echo err 1>&2; exit 3"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.ExitCode != 3 || res.Success() {
		t.Fatalf("exit=%d", res.ExitCode)
	}
	if strings.TrimSpace(string(res.Stdout)) != "out" || strings.TrimSpace(string(res.Stderr)) != "err" {
		t.Fatalf("stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
}

func TestExecRunner_MissingBinaryIsError(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), New("definitely-not-a-real-binary-nosy"))
	if err == nil {
		t.Fatalf("expected error for missing binary")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc...(truncated)" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Fatalf("got %q", got)
	}
}
