package doclink

import (
	"os"
	"strings"
	"testing"

	"github.com/benjaminschreck/doclink/pkg/doclink/xml"
)

func TestValidator_CleanPackagePasses(t *testing.T) {
	pkg := openTestPackage(t, hyperlinkParaXML("rId1", "ok")+paraXML("text"),
		[]testRel{{ID: "rId1", Target: "https://host/a"}})
	validator := NewIntegrityValidator(nil, NopLogger())

	if err := validator.ValidateSession(pkg, StageInitial); err != nil {
		t.Fatalf("clean package failed validation: %v", err)
	}
}

func TestValidator_DanglingReferenceTolerated(t *testing.T) {
	// A pre-existing dangling reference is warned about at extraction and
	// handled by the sweeper; it must not fail the session.
	pkg := openTestPackage(t, hyperlinkParaXML("rId9", "dangling"), nil)
	validator := NewIntegrityValidator(nil, NopLogger())

	if err := validator.ValidateSession(pkg, StageInitial); err != nil {
		t.Fatalf("dangling reference should be tolerated: %v", err)
	}
}

func TestValidator_SharedRelationshipFails(t *testing.T) {
	body := hyperlinkParaXML("rId1", "first") + hyperlinkParaXML("rId1", "second")
	pkg := openTestPackage(t, body, []testRel{{ID: "rId1", Target: "https://host/a"}})
	validator := NewIntegrityValidator(nil, NopLogger())

	err := validator.ValidateSession(pkg, StagePreSaveFinal)
	if err == nil {
		t.Fatal("expected shared relationship id to fail validation")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Stage != StagePreSaveFinal {
		t.Errorf("stage = %q", verr.Stage)
	}
	if !strings.Contains(err.Error(), "rId1") {
		t.Errorf("error should name the relationship: %v", err)
	}
}

func TestValidator_EmptyHyperlinkTargetFails(t *testing.T) {
	pkg := openTestPackage(t, hyperlinkParaXML("rId1", "x"), []testRel{{ID: "rId1", Target: "  "}})
	validator := NewIntegrityValidator(nil, NopLogger())

	if err := validator.ValidateSession(pkg, StageInitial); err == nil {
		t.Fatal("expected empty target to fail validation")
	}
}

func TestValidator_IgnorableErrorsFiltered(t *testing.T) {
	body := hyperlinkParaXML("rId1", "first") + hyperlinkParaXML("rId1", "second")
	pkg := openTestPackage(t, body, []testRel{{ID: "rId1", Target: "https://host/a"}})
	validator := NewIntegrityValidator([]string{"referenced by 2 hyperlink elements"}, NopLogger())

	if err := validator.ValidateSession(pkg, StageInitial); err != nil {
		t.Fatalf("ignorable issue should have been filtered: %v", err)
	}
}

func TestValidator_DuplicateRelationshipIDFails(t *testing.T) {
	pkg := openTestPackage(t, paraXML("x"), []testRel{{ID: "rId1", Target: "https://host/a"}})
	pkg.rels.Relationships = append(pkg.rels.Relationships, xml.Relationship{
		ID: "rId1", Type: xml.HyperlinkRelationshipType, Target: "https://host/b",
	})
	validator := NewIntegrityValidator(nil, NopLogger())

	if err := validator.ValidateSession(pkg, StageInitial); err == nil {
		t.Fatal("expected duplicate relationship id to fail")
	}
}

func TestValidator_ValidateOnDisk(t *testing.T) {
	path := writeDocxFile(t, paraXML("on disk"), nil)
	validator := NewIntegrityValidator(nil, NopLogger())

	if err := validator.ValidateOnDisk(path); err != nil {
		t.Fatalf("valid file failed on-disk validation: %v", err)
	}
}

func TestValidator_ValidateOnDiskRejectsCorrupt(t *testing.T) {
	path := writeDocxFile(t, paraXML("x"), nil)
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	validator := NewIntegrityValidator(nil, NopLogger())

	if err := validator.ValidateOnDisk(path); err == nil {
		t.Fatal("expected corrupt file to fail on-disk validation")
	}
}

func TestIsLockedFileError(t *testing.T) {
	if isLockedFileError(os.ErrNotExist) {
		t.Error("not-exist is not a lock error")
	}
	if !isLockedFileError(&DocumentError{Operation: "open", Cause: errFake("The process cannot access the file because it is being used by another process.")}) {
		t.Error("sharing-violation message should be detected")
	}
}

type errFake string

func (e errFake) Error() string { return string(e) }

func TestLinearBackOff(t *testing.T) {
	b := newLinearBackOff(100)
	if b.NextBackOff() != 100 || b.NextBackOff() != 200 || b.NextBackOff() != 300 {
		t.Error("backoff is not linear")
	}
	b.Reset()
	if b.NextBackOff() != 100 {
		t.Error("reset did not restart the sequence")
	}
}
