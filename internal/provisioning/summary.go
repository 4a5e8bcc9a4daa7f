package provisioning

import (
	"fmt"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/report"
)

// ReportPhase prints the summary and persists what the cluster side
// needs.
type ReportPhase struct{}

// NewReportPhase creates a new report phase.
func NewReportPhase() *ReportPhase {
	return &ReportPhase{}
}

// Name implements the Phase interface.
func (p *ReportPhase) Name() string { return "report" }

// Stage implements the Phase interface.
func (p *ReportPhase) Stage() Stage { return StageReported }

// Provision implements the Phase interface.
func (p *ReportPhase) Provision(ctx *Context) error {
	st := ctx.State

	clusterFile, ok := ctx.Results.Rendered.ClusterFile()
	if !ok {
		return newError(KindGeneration, fmt.Errorf("no cluster-side configuration was rendered"))
	}
	artifacts, err := report.Write(st, ctx.Config, &clusterFile)
	if err != nil {
		return newError(KindGeneration, err)
	}
	ctx.Results.Artifacts = artifacts

	if ctx.Resolver != nil {
		probeCtx, cancel := ctx.WithTimeout(ctx.Timeouts.IPLookup * 4)
		for _, w := range report.ProbeDNS(probeCtx, ctx.Resolver, st.Domain, st.PublicIP) {
			ctx.Warn(w)
		}
		cancel()
	}
	if st.Variant == config.VariantWireGuard && st.PeerPublicKey == "" {
		ctx.Warn("the WireGuard peer section is a placeholder until the cluster peer's public key is known")
	}

	summary := &report.Summary{
		Variant:    string(st.Variant),
		Domain:     st.Domain,
		PublicIP:   st.PublicIP,
		InstallDir: st.InstallDir,
		Steps:      ctx.Results.Steps,
		Info:       report.ConnectionInfo(st, ctx.Config),
		Warnings:   ctx.Results.Warnings,
		NextSteps:  nextSteps(ctx, clusterFile.Path, artifacts.Secret),
	}
	if err := report.Print(ctx.Out, summary); err != nil {
		return newError(KindGeneration, fmt.Errorf("failed to print summary: %w", err))
	}

	ctx.Note(fmt.Sprintf("%d report files written", len(artifacts.Written)))
	return nil
}

func nextSteps(ctx *Context, clusterFile, secret string) []string {
	st := ctx.State
	steps := []string{
		fmt.Sprintf("Point %s and *.%s at %s", st.Domain, st.Domain, st.PublicIP),
		fmt.Sprintf("kubectl apply -f %s", secret),
	}
	switch st.Variant {
	case config.VariantFRP:
		steps = append(steps, fmt.Sprintf("Run frpc on the cluster with %s (mounted from Secret %s/%s)",
			clusterFile, ctx.Config.Report.SecretNamespace, ctx.Config.Report.SecretName))
	case config.VariantWireGuard:
		steps = append(steps, fmt.Sprintf("Configure the cluster peer from %s", clusterFile))
		if st.PeerPublicKey == "" {
			steps = append(steps, "Re-run vpsgate with --peer-public-key <key> once the cluster peer has a key")
		}
	}
	return steps
}
