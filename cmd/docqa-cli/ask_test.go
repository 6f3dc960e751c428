package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/answer"
	"github.com/kailas-cloud/docqa/internal/domain/document"
	"github.com/kailas-cloud/docqa/internal/domain/segment"
	qauc "github.com/kailas-cloud/docqa/internal/usecase/qa"
)

type fakeAsker struct {
	ingestErr error
	askErr    map[string]error
	questions []string
}

func (f *fakeAsker) Ingest(_ context.Context, doc document.Document) (qauc.IngestResult, error) {
	if f.ingestErr != nil {
		return qauc.IngestResult{}, f.ingestErr
	}
	return qauc.IngestResult{DocumentID: doc.ID(), Segments: 3}, nil
}

func (f *fakeAsker) Ask(_ context.Context, id, q string) (answer.Result, error) {
	f.questions = append(f.questions, q)
	if err := f.askErr[q]; err != nil {
		return answer.Result{}, err
	}
	segs, _ := segment.FromTexts(id, id, []string{strings.Repeat("x", 150), "short"})
	return answer.New("answer to "+q, segs), nil
}

func testDoc(t *testing.T) document.Document {
	t.Helper()
	doc, err := document.New("report.pdf", document.ContentTypePDF, []byte("%PDF-1.4"), document.IdentityFilename)
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	return doc
}

func TestSession_SingleQuestion(t *testing.T) {
	svc := &fakeAsker{}
	var out bytes.Buffer

	err := session(context.Background(), svc, testDoc(t), "What is it?", strings.NewReader("ignored\n"), &out)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if len(svc.questions) != 1 || svc.questions[0] != "What is it?" {
		t.Errorf("questions = %v", svc.questions)
	}
	got := out.String()
	if !strings.Contains(got, "Answer: answer to What is it?") {
		t.Errorf("missing answer in output:\n%s", got)
	}
	if !strings.Contains(got, "- "+strings.Repeat("x", 100)+"...\n") {
		t.Errorf("expected 100-character snippet:\n%s", got)
	}
	if !strings.Contains(got, "- short...\n") {
		t.Errorf("expected short snippet:\n%s", got)
	}
}

func TestSession_LoopUntilExit(t *testing.T) {
	svc := &fakeAsker{askErr: map[string]error{"bad": domain.ErrAnswererError}}
	var out bytes.Buffer
	in := strings.NewReader("first\n\n  \nbad\nsecond\nQUIT\nnever\n")

	if err := session(context.Background(), svc, testDoc(t), "", in, &out); err != nil {
		t.Fatalf("session: %v", err)
	}
	want := []string{"first", "bad", "second"}
	if strings.Join(svc.questions, ",") != strings.Join(want, ",") {
		t.Errorf("questions = %v, want %v", svc.questions, want)
	}
	if !strings.Contains(out.String(), "Error: answerer error") {
		t.Errorf("expected error line in output:\n%s", out.String())
	}
}

func TestSession_EOFEndsLoop(t *testing.T) {
	svc := &fakeAsker{}
	var out bytes.Buffer

	if err := session(context.Background(), svc, testDoc(t), "", strings.NewReader("only\n"), &out); err != nil {
		t.Fatalf("session: %v", err)
	}
	if len(svc.questions) != 1 {
		t.Errorf("questions = %v", svc.questions)
	}
}

func TestSession_IngestFailure(t *testing.T) {
	svc := &fakeAsker{ingestErr: domain.ErrExtraction}

	err := session(context.Background(), svc, testDoc(t), "", strings.NewReader(""), &bytes.Buffer{})
	if !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if len(svc.questions) != 0 {
		t.Error("no question may be asked after a failed ingest")
	}
}

func TestReadPDF(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4\n%test"), 0o600); err != nil {
		t.Fatal(err)
	}
	txtPath := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(txtPath, []byte("plain text"), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, err := readPDF(pdfPath, document.IdentityFilename)
	if err != nil {
		t.Fatalf("readPDF: %v", err)
	}
	if doc.ID() != "report.pdf" {
		t.Errorf("id = %q", doc.ID())
	}

	if _, err := readPDF(txtPath, document.IdentityFilename); err == nil {
		t.Error("expected error for non-PDF content")
	}
	if _, err := readPDF(filepath.Join(dir, "missing.pdf"), document.IdentityFilename); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRootCmd_AskRequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"ask"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing --file")
	}
}
