package orchestrator_test

import (
	"testing"
	"testing/fstest"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-groupcontent/pkg/entity"
	"github.com/goliatone/go-groupcontent/pkg/orchestrator"
	"github.com/goliatone/go-groupcontent/pkg/renderers/view"
	"github.com/goliatone/go-groupcontent/pkg/testsupport"
)

func TestOrchestrator_ThemeDefaultsSelectVariantTemplate(t *testing.T) {
	manifest := &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Templates: map[string]string{
			"group_content": "acme/base.html.twig",
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Templates: map[string]string{
					"group_content__event": "acme/dark-event.html.twig",
				},
			},
		},
	}
	templates := fstest.MapFS{
		"acme/base.html.twig":       {Data: []byte(`<section>{{ label }}</section>`)},
		"acme/dark-event.html.twig": {Data: []byte(`<section class="dark">{{ label }}</section>`)},
	}

	orch := orchestrator.New(
		orchestrator.WithViewOptions(
			view.WithTemplatesFS(templates),
			view.WithThemeSelector(view.NewManifestSelector(manifest)),
		),
		orchestrator.WithDefaultTheme("acme", "dark"),
	)

	cases := []struct {
		bundle string
		want   string
	}{
		{bundle: "event", want: `<section class="dark">Launch</section>`},
		{bundle: "article", want: `<section>Launch</section>`},
	}
	for _, tc := range cases {
		t.Run(tc.bundle, func(t *testing.T) {
			g := &entity.GroupContent{Bundle: tc.bundle, Label: "Launch"}
			out, err := orch.Generate(testsupport.Context(), orchestrator.Request{Entity: g})
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if diff := testsupport.CompareGolden(tc.want, string(out)); diff != "" {
				t.Fatalf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
