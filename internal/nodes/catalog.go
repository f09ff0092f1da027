package nodes

import (
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"
)

// Dependencies are the services the default catalog calls out to. Nil
// services make the corresponding nodes fail when executed.
type Dependencies struct {
	Analyzer     ports.JobAnalyzer
	Chat         ports.ChatAgent
	Tasks        ports.TaskSubmitter
	PollInterval time.Duration
	TaskTimeout  time.Duration
}

// NewDefaultRegistry registers the full node catalog.
func NewDefaultRegistry(deps Dependencies) *Registry {
	if deps.PollInterval <= 0 {
		deps.PollInterval = time.Second
	}
	if deps.TaskTimeout <= 0 {
		deps.TaskTimeout = 5 * time.Minute
	}

	r := NewRegistry()

	r.Register("TRIGGER_MANUAL", &TriggerNode{Tag: "TRIGGER_MANUAL", Description: "Start the workflow on demand"})
	r.Register("TRIGGER_SCHEDULE", &TriggerNode{Tag: "TRIGGER_SCHEDULE", Description: "Start the workflow on a cron schedule"})
	r.Register("TRIGGER_WEBHOOK", &TriggerNode{Tag: "TRIGGER_WEBHOOK", Description: "Start the workflow from an HTTP call"})
	r.Register("TRIGGER_EVENT", &TriggerNode{Tag: "TRIGGER_EVENT", Description: "Start the workflow on a platform event"})

	r.Register("AI_AGENT_ANALYZE", &AnalyzeJobNode{Analyzer: deps.Analyzer})
	r.Register("AI_AGENT_CHAT", &ChatNode{Agent: deps.Chat})

	r.Register("AUTO_APPLY_SINGLE", &AutoApplyNode{})
	r.Register("AUTO_APPLY_BULK", &BulkApplyNode{})

	generators := []*GenerateNode{
		{Tag: "RESUME_GENERATE", TaskType: domain.TaskResumeGeneration, ResultKey: "resume", Description: "Generate a resume"},
		{Tag: "RESUME_TAILOR", TaskType: domain.TaskResumeGeneration, ResultKey: "resume", Description: "Tailor a resume to a job"},
		{Tag: "COVER_LETTER_GENERATE", TaskType: domain.TaskCoverLetterGeneration, ResultKey: "coverLetter", Description: "Write a cover letter"},
		{Tag: "COMPANY_RESEARCH", TaskType: domain.TaskCompanyResearch, ResultKey: "research", Description: "Research a company"},
	}
	for _, g := range generators {
		g.Tasks = deps.Tasks
		g.PollInterval = deps.PollInterval
		g.Timeout = deps.TaskTimeout
		r.Register(g.Tag, g)
	}

	r.Register("JOB_TRACKER_ADD", &JobTrackerNode{Action: "add"})
	r.Register("JOB_TRACKER_UPDATE", &JobTrackerNode{Action: "update"})
	r.Register("JOB_SEARCH", &JobSearchNode{})

	r.Register("EMAIL_SEND", &MessageNode{Channel: "email"})
	r.Register("NOTIFICATION_SEND", &MessageNode{Channel: "notification"})
	r.Register("HTTP_REQUEST", &RequestNode{Tag: "HTTP_REQUEST"})
	r.Register("WEBHOOK_CALL", &RequestNode{Tag: "WEBHOOK_CALL"})

	r.Register("CONDITION_IF", &ConditionNode{})
	r.Register("CONDITION_SWITCH", &SwitchNode{})
	r.Register("LOOP_FOR_EACH", &LoopNode{})

	r.Register("WAIT_DELAY", &DelayNode{})
	r.Register("WAIT_UNTIL", &UntilNode{})

	r.Register("MERGE_DATA", &MergeNode{})
	r.Register("SPLIT_DATA", &SplitNode{})
	r.Register("TRANSFORM_DATA", &TransformNode{})
	r.Register("FILTER_DATA", &FilterNode{})
	r.Register("QUERY_DATA", &QueryNode{})
	r.Register("FILE_READ", &FileNode{})
	r.Register("FILE_WRITE", &FileNode{Write: true})

	return r
}
