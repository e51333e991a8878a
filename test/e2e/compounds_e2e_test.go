//go:build e2e

// End-to-end coverage of the compound endpoints: the classifier surface,
// which is fully deterministic and needs no upstream data, and the resolve
// pipeline against the live safety-data source.

package e2e_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/turtacn/ChemStor-Intelligence/pkg/client"
)

func TestClassify_AcidByTextAndStructure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	verdict, err := env.sdk.Compounds().Classify(ctx, &client.ClassifyRequest{
		Name:      "acetic acid",
		Structure: "CC(=O)O",
	})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	if !verdict.Acid {
		t.Fatalf("acetic acid must classify as acid, got tags %v", verdict.Tags)
	}
	if verdict.Base {
		t.Fatalf("acetic acid must not classify as base, got tags %v", verdict.Tags)
	}
	if !containsTag(verdict.Tags, "acid") {
		t.Fatalf("expected acid tag, got %v", verdict.Tags)
	}
}

func TestClassify_BaseByStructure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	verdict, err := env.sdk.Compounds().Classify(ctx, &client.ClassifyRequest{
		Name:      "ammonia",
		Structure: "N",
	})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	if !verdict.Base || verdict.Acid {
		t.Fatalf("ammonia must classify as base only, got tags %v", verdict.Tags)
	}
}

func TestClassify_H290Uncertainty(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	verdict, err := env.sdk.Compounds().Classify(ctx, &client.ClassifyRequest{
		Name:       "mystery sample",
		Structure:  "CCO",
		Statements: []string{"May be corrosive to metals"},
	})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	if len(verdict.Tags) != 1 || verdict.Tags[0] != "uncertain-H290" {
		t.Fatalf("expected exactly the uncertain-H290 tag, got %v", verdict.Tags)
	}
	if verdict.Acid || verdict.Base {
		t.Fatal("H290 alone must not decide acid or base")
	}
}

func TestClassify_InvalidStructureIsTerminal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	verdict, err := env.sdk.Compounds().Classify(ctx, &client.ClassifyRequest{
		Name:      "acidic sludge",
		Structure: "][",
	})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	// The name contains "acid", but an unparseable structure discards every
	// text-derived tag.
	if len(verdict.Tags) != 1 || verdict.Tags[0] != "invalid-structure" {
		t.Fatalf("expected exactly the invalid-structure tag, got %v", verdict.Tags)
	}
}

func TestClassify_UnknownWhenNothingFires(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	verdict, err := env.sdk.Compounds().Classify(ctx, &client.ClassifyRequest{
		Name:      "water",
		Structure: "O",
	})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}

	if len(verdict.Tags) != 1 || verdict.Tags[0] != "unknown" {
		t.Fatalf("expected exactly the unknown tag, got %v", verdict.Tags)
	}
}

func TestClassify_RejectsMissingName(t *testing.T) {
	resp := doPost(t, "/api/v1/compounds/classify", map[string]string{"structure": "CCO"})
	defer resp.Body.Close()
	assertStatus(t, resp, http.StatusBadRequest)

	var envlp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	assertJSON(t, resp, &envlp)
	if envlp.Error.Code == "" {
		t.Fatal("error envelope must carry a code")
	}
}

func TestResolve_EnrichesKnownCompound(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	dto, err := env.sdk.Compounds().Resolve(ctx, "water")
	skipIfUnavailable(t, err)

	if dto.CID == "" {
		t.Fatal("resolved compound must carry a CID")
	}
	if dto.CanonicalName == "" {
		t.Fatal("resolved compound must carry a canonical name")
	}
	if string(dto.State) == "" {
		t.Fatal("resolved compound must carry an explicit physical state")
	}
	if len(dto.AcidBase) == 0 {
		t.Fatal("classification must always produce at least one tag")
	}
}

func TestResolve_UnknownCompoundIs404(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := env.sdk.Compounds().Resolve(ctx, "zz-"+randomSuffix())
	if err == nil {
		t.Fatal("expected a resolution failure for a nonsense name")
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected an API error, got %T: %v", err, err)
	}
	if apiErr.IsServerError() {
		t.Skipf("upstream resolver unavailable: %v", apiErr)
	}
	if !apiErr.IsNotFound() {
		t.Fatalf("expected 404 for unknown compound, got %d", apiErr.StatusCode)
	}
}

func containsTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
