package rules

import (
	"fmt"
	"strings"

	"github.com/c360studio/semarch/architecture"
)

// checkCardinality applies Miller's Law to module fan-out: every MOD with
// allocated FUNCs must hold between MinFuncsPerModule and MaxFuncsPerModule.
func checkCardinality(a *architecture.Architecture, t Thresholds) []architecture.Violation {
	var out []architecture.Violation
	modFuncs := a.ModuleFuncs()
	for _, m := range architecture.SortedKeys(modFuncs) {
		funcs := modFuncs[m]
		n := len(funcs)
		affected := append([]string{m}, funcs...)
		switch {
		case n > t.MaxFuncsPerModule:
			out = append(out, architecture.Violation{
				RuleID:            RuleMillersLaw,
				Severity:          architecture.SeveritySoft,
				AffectedNodes:     affected,
				Message:           fmt.Sprintf("Module %s has %d FUNCs (max %d)", m, n, t.MaxFuncsPerModule),
				SuggestedOperator: architecture.OpModSplit,
			})
		case n > 0 && n < t.MinFuncsPerModule:
			out = append(out, architecture.Violation{
				RuleID:            RuleMillersLaw,
				Severity:          architecture.SeveritySoft,
				AffectedNodes:     affected,
				Message:           fmt.Sprintf("Module %s has %d FUNCs (min %d)", m, n, t.MinFuncsPerModule),
				SuggestedOperator: architecture.OpFuncMerge,
			})
		}
	}
	return out
}

// checkVolatility flags modules mixing high- and low-volatility FUNCs.
// FUNCs without a numeric volatility are neither.
func checkVolatility(a *architecture.Architecture, t Thresholds) []architecture.Violation {
	var out []architecture.Violation
	modFuncs := a.ModuleFuncs()
	for _, m := range architecture.SortedKeys(modFuncs) {
		var high []string
		low := 0
		for _, f := range modFuncs[m] {
			n, _ := a.Node(f)
			v, ok := n.Float(architecture.PropVolatility)
			if !ok {
				continue
			}
			if v >= t.HighVolatility {
				high = append(high, f)
			} else {
				low++
			}
		}
		if len(high) == 0 || low == 0 {
			continue
		}
		out = append(out, architecture.Violation{
			RuleID:        RuleVolatilityIsolation,
			Severity:      architecture.SeveritySoft,
			AffectedNodes: append([]string{m}, high...),
			Message: fmt.Sprintf("Module %s mixes %d high-volatility FUNCs (%s) with %d low-volatility FUNCs",
				m, len(high), strings.Join(high, ", "), low),
			SuggestedOperator: architecture.OpAllocShift,
		})
	}
	return out
}

// checkTraceability requires every REQ to be satisfied and verified.
func checkTraceability(a *architecture.Architecture, _ Thresholds) []architecture.Violation {
	var out []architecture.Violation
	for _, req := range a.NodesOfType(architecture.NodeReq) {
		satisfied := false
		for _, e := range a.EdgesTo(req.ID) {
			if e.Type == architecture.EdgeSatisfy {
				satisfied = true
				break
			}
		}
		verified := false
		for _, e := range a.EdgesFrom(req.ID) {
			if e.Type == architecture.EdgeVerify {
				verified = true
				break
			}
		}
		if !satisfied {
			out = append(out, architecture.Violation{
				RuleID:            RuleReqUnsatisfied,
				Severity:          architecture.SeveritySoft,
				AffectedNodes:     []string{req.ID},
				Message:           fmt.Sprintf("Requirement %s is not satisfied by any element", req.ID),
				SuggestedOperator: architecture.OpReqLink,
			})
		}
		if !verified {
			out = append(out, architecture.Violation{
				RuleID:            RuleReqUnverified,
				Severity:          architecture.SeveritySoft,
				AffectedNodes:     []string{req.ID},
				Message:           fmt.Sprintf("Requirement %s has no verifying test", req.ID),
				SuggestedOperator: architecture.OpTestLink,
			})
		}
	}
	return out
}

// checkIsolation flags FUNCs with no io edges in either direction.
func checkIsolation(a *architecture.Architecture, _ Thresholds) []architecture.Violation {
	var out []architecture.Violation
	for _, f := range a.NodesOfType(architecture.NodeFunc) {
		in, outs := a.IOCounts(f.ID)
		if in+outs > 0 {
			continue
		}
		out = append(out, architecture.Violation{
			RuleID:            RuleIsolation,
			Severity:          architecture.SeveritySoft,
			AffectedNodes:     []string{f.ID},
			Message:           fmt.Sprintf("Function %s has no io flows", f.ID),
			SuggestedOperator: architecture.OpFlowRedirect,
		})
	}
	return out
}

// checkAllocationCohesion flags FUNCs allocated to more than one MOD.
func checkAllocationCohesion(a *architecture.Architecture, _ Thresholds) []architecture.Violation {
	var out []architecture.Violation
	alloc := a.Allocations()
	for _, f := range architecture.SortedKeys(alloc) {
		mods := alloc[f]
		if len(mods) < 2 {
			continue
		}
		out = append(out, architecture.Violation{
			RuleID:            RuleAllocationCohesion,
			Severity:          architecture.SeveritySoft,
			AffectedNodes:     append([]string{f}, mods...),
			Message:           fmt.Sprintf("Function %s is allocated to %d modules: %s", f, len(mods), strings.Join(mods, ", ")),
			SuggestedOperator: architecture.OpRealloc,
		})
	}
	return out
}
