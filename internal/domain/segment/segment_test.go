package segment

import "testing"

func TestNew_Valid(t *testing.T) {
	s, err := New("doc-1", "doc.pdf", 3, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DocumentID() != "doc-1" || s.Source() != "doc.pdf" || s.Position() != 3 || s.Text() != "hello" {
		t.Errorf("unexpected segment: %+v", s)
	}

	md := s.Metadata()
	if md["source"] != "doc.pdf" || md["document_id"] != "doc-1" || md["chunk"] != 3 {
		t.Errorf("unexpected metadata: %v", md)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("", "doc.pdf", 0, "x"); err == nil {
		t.Error("expected error for empty document id")
	}
	if _, err := New("d", "doc.pdf", -1, "x"); err == nil {
		t.Error("expected error for negative position")
	}
	if _, err := New("d", "doc.pdf", 0, ""); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestFromTexts(t *testing.T) {
	segs, err := FromTexts("d", "d.pdf", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range segs {
		if segs[i].Position() != i {
			t.Errorf("segment %d has position %d", i, segs[i].Position())
		}
	}
	texts := Texts(segs)
	if len(texts) != 3 || texts[0] != "a" || texts[2] != "c" {
		t.Errorf("Texts() = %v", texts)
	}

	if _, err := FromTexts("d", "d.pdf", []string{"a", ""}); err == nil {
		t.Error("expected error for empty text")
	}
}
