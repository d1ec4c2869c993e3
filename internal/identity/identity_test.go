package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/pable/go-telemetry-metrics/internal/model"
)

func TestNormalize(t *testing.T) {
	m := New(map[string]string{
		"24fe09008d0b1af05fc581fb7c0bc202": "Tnnr",
		"53f59f690061322b8190205acded4335": "Tom C-S",
	})
	in := []model.InteractionEvent{
		{ActorID: "24fe09008d0b1af05fc581fb7c0bc202", TargetID: "53f59f690061322b8190205acded4335", ServerID: "eu-1", ItemID: "rifle"},
		{ActorID: "unknown", TargetID: "24fe09008d0b1af05fc581fb7c0bc202", ServerID: "eu-1", ItemID: "knife"},
	}

	out := Normalize(in, m)

	if out[0].ActorID != "Tnnr" || out[0].TargetID != "Tom C-S" {
		t.Errorf("row 0 not resolved: %+v", out[0])
	}
	if out[1].ActorID != "unknown" {
		t.Errorf("unmapped id should pass through, got %q", out[1].ActorID)
	}
	if out[1].TargetID != "Tnnr" {
		t.Errorf("row 1 target: want Tnnr, got %q", out[1].TargetID)
	}
	if out[0].ServerID != "eu-1" || out[1].ItemID != "knife" {
		t.Error("server and item ids must not change")
	}
	// Input must not be mutated.
	if in[0].ActorID != "24fe09008d0b1af05fc581fb7c0bc202" {
		t.Error("Normalize mutated its input")
	}
}

func TestNormalize_NilMap(t *testing.T) {
	in := []model.InteractionEvent{{ActorID: "a", TargetID: "b"}}
	out := Normalize(in, nil)
	if out[0] != in[0] {
		t.Errorf("nil map should be identity, got %+v", out[0])
	}
}

func TestNew_CopiesInput(t *testing.T) {
	src := map[string]string{"id1": "Alice", "": "ghost", "id2": ""}
	m := New(src)
	src["id1"] = "Mallory"

	if got := m.Resolve("id1"); got != "Alice" {
		t.Errorf("map should be isolated from its source, got %q", got)
	}
	if m.Len() != 1 {
		t.Errorf("empty ids/names should be dropped, len=%d", m.Len())
	}
}

func TestLoad(t *testing.T) {
	convey.Convey("Given an identity file on disk", t, func() {
		dir := t.TempDir()

		convey.Convey("When it is YAML with an identities table", func() {
			path := filepath.Join(dir, "ids.yaml")
			content := "identities:\n  24fe09008d0b1af05fc581fb7c0bc202: Tnnr\n  0e6b7895a9ab8de6cd2fed46ed0736b4: Rick\n"
			convey.So(os.WriteFile(path, []byte(content), 0o644), convey.ShouldBeNil)

			m, err := Load(path)

			convey.Convey("Then every entry resolves", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Len(), convey.ShouldEqual, 2)
				convey.So(m.Resolve("0e6b7895a9ab8de6cd2fed46ed0736b4"), convey.ShouldEqual, "Rick")
				convey.So(m.Resolve("24fe09008d0b1af05fc581fb7c0bc202"), convey.ShouldEqual, "Tnnr")
			})
		})

		convey.Convey("When it is JSON", func() {
			path := filepath.Join(dir, "ids.json")
			content := `{"identities": {"c7542ba263bcff7cda1d07b2436a69ec": "Aiden"}}`
			convey.So(os.WriteFile(path, []byte(content), 0o644), convey.ShouldBeNil)

			m, err := Load(path)

			convey.Convey("Then it parses as YAML too", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Resolve("c7542ba263bcff7cda1d07b2436a69ec"), convey.ShouldEqual, "Aiden")
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := Load(filepath.Join(dir, "missing.yaml"))

			convey.Convey("Then an error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMerge(t *testing.T) {
	base := New(map[string]string{"a": "Alpha", "b": "Bravo"})
	over := New(map[string]string{"b": "Beta"})

	m := Merge(base, over)
	if m.Resolve("a") != "Alpha" || m.Resolve("b") != "Beta" {
		t.Errorf("unexpected merge result a=%q b=%q", m.Resolve("a"), m.Resolve("b"))
	}
	if Merge(nil, nil).Len() != 0 {
		t.Error("merging nil maps should be empty")
	}
}
