package resolve

import (
	"testing"

	"github.com/semloc/semloc/internal/models"
)

func textInput(label string, attrs map[string]string) *models.NodeDescriptor {
	return &models.NodeDescriptor{Tag: "input", Type: "text", Attrs: attrs, Labels: []string{label}}
}

func TestShortlist_PicksBestHintMatch(t *testing.T) {
	nodes := []*models.NodeDescriptor{
		textInput("Company", map[string]string{"name": "company"}),
		textInput("Username", map[string]string{"name": "username", "placeholder": "Email or username"}),
		textInput("City", map[string]string{"name": "city"}),
	}
	target := &models.SemanticTarget{Key: "login.username", Tag: "input", Hints: []string{"user", "email"}}

	idx, node := shortlist(nodes, target, 20)
	if node == nil {
		t.Fatal("no node picked")
	}
	if idx != 1 || node.Labels[0] != "Username" {
		t.Errorf("picked index %d (%v), want the username input", idx, node.Labels)
	}
}

func TestShortlist_TagAndTypeFilter(t *testing.T) {
	nodes := []*models.NodeDescriptor{
		{Tag: "button", InnerText: "password"},
		{Tag: "input", Type: "text", Attrs: map[string]string{"name": "password_hint"}},
		{Tag: "input", Type: "password", Attrs: map[string]string{"name": "password"}},
	}
	target := &models.SemanticTarget{Key: "login.password", Tag: "input", Types: []string{"password"}, Hints: []string{"pass"}}

	idx, node := shortlist(nodes, target, 20)
	if node == nil || idx != 2 {
		t.Fatalf("picked index %d, want the password-typed input", idx)
	}
}

func TestShortlist_RequiredHintsGate(t *testing.T) {
	nodes := []*models.NodeDescriptor{
		textInput("Search", map[string]string{"name": "q"}),
	}
	target := &models.SemanticTarget{
		Key:           "search.box",
		Tag:           "input",
		Hints:         []string{"search"},
		RequiredHints: []string{"query-field"},
	}
	if _, node := shortlist(nodes, target, 20); node != nil {
		t.Errorf("node without required hint was picked: %v", node.Labels)
	}
}

func TestShortlist_DocumentOrderOnTies(t *testing.T) {
	nodes := []*models.NodeDescriptor{
		textInput("Email", map[string]string{"name": "primary_email"}),
		textInput("Email", map[string]string{"name": "backup_email"}),
	}
	target := &models.SemanticTarget{Key: "profile.email", Tag: "input", Hints: []string{"email"}}

	idx, _ := shortlist(nodes, target, 20)
	if idx != 0 {
		t.Errorf("tie picked index %d, want the first in document order", idx)
	}
}

func TestShortlist_NoHintOverlapIsNoMatch(t *testing.T) {
	nodes := []*models.NodeDescriptor{
		textInput("City", map[string]string{"name": "city"}),
	}
	target := &models.SemanticTarget{Key: "login.username", Tag: "input", Hints: []string{"user"}}
	if _, node := shortlist(nodes, target, 20); node != nil {
		t.Error("node with zero hint overlap was picked")
	}
}

func TestShortlist_LimitCapsConsideredNodes(t *testing.T) {
	nodes := make([]*models.NodeDescriptor, 0, 30)
	for i := 0; i < 29; i++ {
		nodes = append(nodes, textInput("Field", map[string]string{"name": "field"}))
	}
	// The best match sits beyond the shortlist cap.
	nodes = append(nodes, textInput("Username", map[string]string{"name": "username"}))
	target := &models.SemanticTarget{Key: "login.username", Tag: "input", Hints: []string{"user"}}

	if _, node := shortlist(nodes, target, 20); node != nil {
		t.Error("node beyond the shortlist cap was considered")
	}
}
