package trial

import (
	"context"

	"github.com/dpopsuev/tribunal/internal/chambers"
	"github.com/dpopsuev/tribunal/internal/court"
	"github.com/dpopsuev/tribunal/internal/rubric"
	"github.com/dpopsuev/tribunal/pkg/audit"
)

// The four stages of an audit, in dispatch order.
const (
	StageInvestigate audit.StageID = "investigate"
	StageCorrelate   audit.StageID = "correlate"
	StageDeliberate  audit.StageID = "deliberate"
	StageSynthesize  audit.StageID = "synthesize"
)

// Collector gathers evidence about one aspect of the submission. A
// collector that returns an error becomes a collection fault on the run
// state; its siblings and the rest of the run continue.
type Collector interface {
	ID() string
	Collect(ctx context.Context) ([]audit.Evidence, error)
}

// Build assembles the four-stage audit graph. Investigators fan out in
// the first stage, correlators in the second; one judge node per bench
// seat deliberates in the third, and the chief justice seals the report
// in the fourth. The observer may be nil.
func Build(cfg RunConfig, investigators, correlators []Collector, gen chambers.Generator, obs audit.Observer) (*audit.Engine, error) {
	synth, err := court.NewSynthesizer(cfg.Rubric, cfg.Synthesis)
	if err != nil {
		return nil, err
	}
	adapter, err := chambers.NewAdapter(gen, cfg.Drafting, audit.NewLimiter(cfg.Generators))
	if err != nil {
		return nil, err
	}

	judges := make([]audit.Node, 0, 3)
	for _, p := range court.Bench() {
		judges = append(judges, judgeNode(p, cfg.Rubric, adapter))
	}

	stages := []audit.Stage{
		{ID: StageInvestigate, Nodes: collectorNodes(investigators)},
		{ID: StageCorrelate, Nodes: collectorNodes(correlators)},
		{ID: StageDeliberate, Nodes: judges},
		{ID: StageSynthesize, Nodes: []audit.Node{verdictNode(synth)}},
	}

	router, err := audit.NewRouter(map[audit.StageID][]audit.Route{
		StageInvestigate: {
			{When: noLeads, To: audit.StageTerminal, Explanation: "no evidence collected and faults recorded; nothing for the bench to weigh"},
			{To: StageCorrelate, Explanation: "evidence collected"},
		},
		StageCorrelate: {
			{To: StageDeliberate, Explanation: "evidence correlated"},
		},
		StageDeliberate: {
			{To: StageSynthesize, Explanation: "bench opinions drafted"},
		},
		StageSynthesize: {
			{To: audit.StageTerminal, Explanation: "report sealed"},
		},
	})
	if err != nil {
		return nil, err
	}

	engineCfg := audit.Config{
		Entry:       StageInvestigate,
		Workers:     cfg.Workers,
		NodeTimeout: cfg.NodeTimeout,
		RunTimeout:  cfg.RunTimeout,
	}
	var opts []audit.Option
	if obs != nil {
		opts = append(opts, audit.WithObserver(obs))
	}
	return audit.New(engineCfg, stages, router, opts...)
}

// noLeads is the terminal-error predicate: every collector came back
// empty and at least one fault was recorded.
func noLeads(s audit.State) bool {
	return len(s.AllEvidence()) == 0 && len(s.Faults) > 0
}

func collectorNodes(collectors []Collector) []audit.Node {
	nodes := make([]audit.Node, 0, len(collectors))
	for _, c := range collectors {
		nodes = append(nodes, collectorNode(c))
	}
	return nodes
}

// collectorNode adapts a Collector to the graph: its evidence files
// under the collector's key, its error becomes a collection fault.
func collectorNode(c Collector) audit.Node {
	return audit.NodeFunc{
		Name:  c.ID(),
		Class: audit.FaultCollection,
		Fn: func(ctx context.Context, _ audit.State) (audit.Delta, error) {
			items, err := c.Collect(ctx)
			if err != nil {
				return audit.Delta{}, err
			}
			return audit.Delta{Evidence: map[string][]audit.Evidence{c.ID(): items}}, nil
		},
	}
}

// judgeNode drafts one seat's opinion for every rubric criterion. The
// adapter owns retries and degradation, so the node itself never fails;
// generator exhaustion surfaces as faults inside the delta.
func judgeNode(p court.Persona, r *rubric.Rubric, adapter *chambers.Adapter) audit.Node {
	return audit.NodeFunc{
		Name:  "judge-" + string(p.Role),
		Class: audit.FaultGeneration,
		Fn: func(ctx context.Context, snap audit.State) (audit.Delta, error) {
			pool := snap.AllEvidence()
			var d audit.Delta
			for _, c := range r.Criteria {
				op, fault := adapter.Draft(ctx, chambers.Brief{
					Persona:   p,
					Criterion: c,
					Evidence:  c.Relevant(pool),
				})
				d.Opinions = append(d.Opinions, op)
				if fault != nil {
					d.Faults = append(d.Faults, *fault)
				}
			}
			return d, nil
		},
	}
}

// verdictNode is the chief justice: it reduces the bench's opinions to
// the set-once report.
func verdictNode(s *court.Synthesizer) audit.Node {
	return audit.NodeFunc{
		Name:  "chief_justice",
		Class: audit.FaultGeneration,
		Fn: func(_ context.Context, snap audit.State) (audit.Delta, error) {
			return audit.Delta{Report: &audit.Report{Verdicts: s.Deliberate(snap)}}, nil
		},
	}
}
