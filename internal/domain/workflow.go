package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WorkflowStatus string

const (
	WorkflowDraft    WorkflowStatus = "DRAFT"
	WorkflowActive   WorkflowStatus = "ACTIVE"
	WorkflowArchived WorkflowStatus = "ARCHIVED"
)

const (
	DefaultMaxConcurrentExecutions = 1
	DefaultMaxRetries              = 3
)

// NodeType is the tag a node executor is registered under. The set of tags
// is a public contract for workflow authors.
type NodeType string

// IsTrigger reports whether the tag names one of the trigger variants.
func (t NodeType) IsTrigger() bool {
	return strings.HasPrefix(string(t), "TRIGGER_")
}

// Category is the first underscore-delimited segment of the tag, lower-cased.
func (t NodeType) Category() string {
	head, _, _ := strings.Cut(string(t), "_")
	return strings.ToLower(head)
}

type Node struct {
	ID             string         `json:"id" yaml:"id" validate:"required"`
	Type           NodeType       `json:"type" yaml:"type" validate:"required"`
	Name           string         `json:"name,omitempty" yaml:"name,omitempty"`
	IsStart        bool           `json:"isStart,omitempty" yaml:"isStart,omitempty"`
	Config         map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	OutputVariable string         `json:"outputVariable,omitempty" yaml:"outputVariable,omitempty"`
}

// Label is the human readable node name used in logs.
func (n Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	if name, ok := n.Config["name"].(string); ok && name != "" {
		return name
	}
	return string(n.Type)
}

// IsEntry reports whether the node can start a walk.
func (n Node) IsEntry() bool {
	return n.IsStart || n.Type.IsTrigger()
}

// Condition gates traversal of a connection or drives a CONDITION_IF node.
type Condition struct {
	Field    string `json:"field" yaml:"field" validate:"required"`
	Operator string `json:"operator" yaml:"operator" validate:"required"`
	Value    any    `json:"value" yaml:"value"`
}

type Connection struct {
	ID        string     `json:"id,omitempty" yaml:"id,omitempty"`
	From      string     `json:"from" yaml:"from" validate:"required"`
	To        string     `json:"to" yaml:"to" validate:"required"`
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
}

type Workflow struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;" json:"id" yaml:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;index;not null" json:"userId" yaml:"userId" validate:"required"`
	Name        string         `gorm:"type:varchar(200);not null" json:"name" yaml:"name" validate:"required,max=200"`
	Description string         `gorm:"type:text" json:"description,omitempty" yaml:"description,omitempty"`
	Status      WorkflowStatus `gorm:"type:varchar(20);index;default:'DRAFT'" json:"status" yaml:"status" validate:"oneof=DRAFT ACTIVE ARCHIVED"`
	IsTemplate  bool           `gorm:"default:false" json:"isTemplate" yaml:"isTemplate"`

	Nodes       datatypes.JSONSlice[Node]       `gorm:"type:jsonb" json:"nodes" yaml:"nodes" validate:"dive"`
	Connections datatypes.JSONSlice[Connection] `gorm:"type:jsonb" json:"connections" yaml:"connections" validate:"dive"`

	MaxConcurrentExecutions int  `gorm:"default:1" json:"maxConcurrentExecutions" yaml:"maxConcurrentExecutions" validate:"gte=0"`
	TimeoutSeconds          int  `gorm:"default:300" json:"timeoutSeconds" yaml:"timeoutSeconds" validate:"gte=0"`
	RetryOnFailure          bool `gorm:"default:true" json:"retryOnFailure" yaml:"retryOnFailure"`
	MaxRetries              int  `gorm:"default:3" json:"maxRetries" yaml:"maxRetries" validate:"gte=0"`

	// Maintained by the executor only.
	TotalExecutions      int64      `gorm:"default:0" json:"totalExecutions" yaml:"-"`
	SuccessfulExecutions int64      `gorm:"default:0" json:"successfulExecutions" yaml:"-"`
	FailedExecutions     int64      `gorm:"default:0" json:"failedExecutions" yaml:"-"`
	LastExecutedAt       *time.Time `json:"lastExecutedAt,omitempty" yaml:"-"`

	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// --- FACTORY ---
func NewWorkflow(userID uuid.UUID, name string, nodes []Node, connections []Connection) *Workflow {
	now := time.Now()
	return &Workflow{
		ID:                      uuid.New(),
		UserID:                  userID,
		Name:                    name,
		Status:                  WorkflowDraft,
		Nodes:                   nodes,
		Connections:             connections,
		MaxConcurrentExecutions: DefaultMaxConcurrentExecutions,
		TimeoutSeconds:          300,
		RetryOnFailure:          true,
		MaxRetries:              DefaultMaxRetries,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// --- METHODS ---

// CanExecute reports whether runs may be started in the current status.
func (w *Workflow) CanExecute() bool {
	return w.Status == WorkflowActive || w.Status == WorkflowDraft
}

// ConcurrencyLimit is the number of QUEUED or RUNNING executions allowed at once.
func (w *Workflow) ConcurrencyLimit() int {
	if w.MaxConcurrentExecutions <= 0 {
		return DefaultMaxConcurrentExecutions
	}
	return w.MaxConcurrentExecutions
}

func (w *Workflow) RetryLimit() int {
	if w.MaxRetries < 0 {
		return 0
	}
	return w.MaxRetries
}

func (w *Workflow) NodeByID(id string) (Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the field level shape of the definition. Graph rules are
// enforced by the executor against its node registry.
func (w *Workflow) Validate() error {
	if err := structValidator.Struct(w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	return nil
}
