package provisioning

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/imamik/vpsgate/internal/render"
)

// RenderPhase renders and writes the configuration files of the variant.
type RenderPhase struct{}

// NewRenderPhase creates a new render phase.
func NewRenderPhase() *RenderPhase {
	return &RenderPhase{}
}

// Name implements the Phase interface.
func (p *RenderPhase) Name() string { return "render" }

// Stage implements the Phase interface.
func (p *RenderPhase) Stage() Stage { return StageConfigReady }

// Provision implements the Phase interface.
func (p *RenderPhase) Provision(ctx *Context) error {
	st := ctx.State

	set, err := render.Render(st, ctx.Config)
	if err != nil {
		return newError(KindGeneration, err)
	}
	ctx.Results.Rendered = set

	result, err := render.Write(set, st.InstallDir, ctx.Now())
	if err != nil {
		return newError(KindGeneration, err)
	}
	ctx.Results.Files = result
	ctx.Metrics.ObserveFiles(len(result.Written), len(result.Unchanged))

	for _, written := range result.Written {
		// .env is only read back by vpsgate itself.
		if f, ok := set.Get(written); ok && !f.ClusterSide && written != st.EnvPath() {
			ctx.Results.ServiceConfigChanged = true
		}
		ctx.Observer.Printf("[%s] wrote %s", p.Name(), written)
	}

	if result.BackupDir != "" {
		if st.Prior != nil {
			st.Prior.BackupDir = result.BackupDir
		}
		ctx.Observer.Printf("[%s] previous files saved to %s", p.Name(), result.BackupDir)
		p.uploadBackup(ctx, result.BackupDir)
	}

	ctx.Note(fmt.Sprintf("%d written, %d unchanged", len(result.Written), len(result.Unchanged)))
	return nil
}

// uploadBackup copies the backup directory to S3-compatible storage.
// The local copy is authoritative, so failures only warn.
func (p *RenderPhase) uploadBackup(ctx *Context, dir string) {
	s3cfg := ctx.Config.Backup.S3
	if !s3cfg.Enabled() {
		return
	}
	if ctx.Backups == nil {
		ctx.Warn("offsite backup skipped: VPSGATE_S3_ACCESS_KEY and VPSGATE_S3_SECRET_KEY are not set")
		return
	}

	uploadCtx, cancel := ctx.WithTimeout(ctx.Timeouts.Cloud)
	defer cancel()

	if err := ctx.Backups.EnsureBucket(uploadCtx, s3cfg.Bucket); err != nil {
		ctx.Warn(fmt.Sprintf("offsite backup failed: %v", err))
		return
	}
	prefix := path.Join(s3cfg.Prefix, filepath.Base(ctx.State.InstallDir), filepath.Base(dir))
	keys, err := ctx.Backups.UploadDir(uploadCtx, s3cfg.Bucket, prefix, dir)
	if err != nil {
		ctx.Warn(fmt.Sprintf("offsite backup failed: %v", err))
		return
	}
	ctx.Results.UploadedBackup = keys
	ctx.Observer.Printf("[%s] uploaded %d backup files to s3://%s/%s", p.Name(), len(keys), s3cfg.Bucket, prefix)
}
