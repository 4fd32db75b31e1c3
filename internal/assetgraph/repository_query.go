package assetgraph

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"modelibr/internal/apperr"
	"modelibr/internal/assetmodel"
)

// ListParams are the common pagination/filter inputs for container-scoped
// listings.
type ListParams struct {
	Page         int
	PageSize     int
	PackID       *int64
	ProjectID    *int64
	TextureSetID *int64
}

// ListResult wraps a page of items with the pagination envelope used across
// every query endpoint.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func (p ListParams) normalized() (page, pageSize, offset int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	pageSize = p.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	return page, pageSize, (page - 1) * pageSize
}

// ListModels returns a page of non-deleted models, optionally filtered by
// container or texture-set membership.
func (r *Repository) ListModels(ctx context.Context, params ListParams) (ListResult[assetmodel.Model], error) {
	page, pageSize, offset := params.normalized()

	where := `WHERE m.is_deleted = false`
	var args []any
	nextArg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	join := ""
	if params.PackID != nil {
		join += " JOIN container_memberships cm_pack ON cm_pack.member_kind = 'MODEL' AND cm_pack.member_id = m.id AND cm_pack.container_kind = 'PACK' AND cm_pack.container_id = " + nextArg(*params.PackID)
	}
	if params.ProjectID != nil {
		join += " JOIN container_memberships cm_proj ON cm_proj.member_kind = 'MODEL' AND cm_proj.member_id = m.id AND cm_proj.container_kind = 'PROJECT' AND cm_proj.container_id = " + nextArg(*params.ProjectID)
	}
	if params.TextureSetID != nil {
		join += " JOIN texture_set_model_versions tsmv ON tsmv.model_version_id IN (SELECT id FROM model_versions WHERE model_id = m.id) AND tsmv.texture_set_id = " + nextArg(*params.TextureSetID)
	}

	countQuery := "SELECT COUNT(DISTINCT m.id) FROM models m" + join + " " + where
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return ListResult[assetmodel.Model]{}, apperr.Wrap(apperr.CodeFatalInternal, "counting models", err)
	}

	limitPlaceholder := nextArg(pageSize)
	offsetPlaceholder := nextArg(offset)
	listQuery := "SELECT DISTINCT m.* FROM models m" + join + " " + where +
		" ORDER BY m.id LIMIT " + limitPlaceholder + " OFFSET " + offsetPlaceholder

	var items []assetmodel.Model
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return ListResult[assetmodel.Model]{}, apperr.Wrap(apperr.CodeFatalInternal, "listing models", err)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return ListResult[assetmodel.Model]{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetModel fetches a model by id, including soft-deleted ones (callers that
// need to exclude deleted models filter on IsDeleted themselves).
func (r *Repository) GetModel(ctx context.Context, id int64) (*assetmodel.Model, error) {
	var m assetmodel.Model
	err := r.db.GetContext(ctx, &m, `SELECT * FROM models WHERE id = $1`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "model not found", err)
	}
	return &m, nil
}

// ListModelVersions returns every version of a model, ordered oldest-first.
func (r *Repository) ListModelVersions(ctx context.Context, modelID int64) ([]assetmodel.ModelVersion, error) {
	var versions []assetmodel.ModelVersion
	err := r.db.SelectContext(ctx, &versions,
		`SELECT * FROM model_versions WHERE model_id = $1 ORDER BY version_num`, modelID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "listing model versions", err)
	}
	return versions, nil
}

// GetModelVersion fetches a single version by id.
func (r *Repository) GetModelVersion(ctx context.Context, id int64) (*assetmodel.ModelVersion, error) {
	var v assetmodel.ModelVersion
	err := r.db.GetContext(ctx, &v, `SELECT * FROM model_versions WHERE id = $1`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "model version not found", err)
	}
	return &v, nil
}

// ListVersionBlobs returns every role-tagged blob reference for a version.
func (r *Repository) ListVersionBlobs(ctx context.Context, versionID int64) ([]assetmodel.ModelVersionBlob, error) {
	var refs []assetmodel.ModelVersionBlob
	err := r.db.SelectContext(ctx, &refs,
		`SELECT * FROM model_version_blobs WHERE model_version_id = $1`, versionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "listing version blobs", err)
	}
	return refs, nil
}

// GetPrimaryRenderableBlob returns the hash of the version's
// PRIMARY_RENDERABLE blob, or NOT_FOUND if none is attached.
func (r *Repository) GetPrimaryRenderableBlob(ctx context.Context, versionID int64) (string, error) {
	var hash string
	err := r.db.GetContext(ctx, &hash,
		`SELECT blob_hash FROM model_version_blobs WHERE model_version_id = $1 AND role = $2 LIMIT 1`,
		versionID, assetmodel.BlobRolePrimaryRenderable)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeNotFound, "no primary renderable blob attached to version", err)
	}
	return hash, nil
}

// FindModelVersionByPrimaryBlob returns the (model_id, version_id) of an
// existing ModelVersion that already references hash under role, if any.
// UploadBlob's NEW_MODEL destination uses this to satisfy the idempotency
// key (blob hash, destination): replaying the exact same bytes against the
// "create a new model" destination must reuse the version that already
// carries them rather than minting a duplicate model.
func (r *Repository) FindModelVersionByPrimaryBlob(ctx context.Context, hash string, role assetmodel.BlobRole) (modelID int64, versionID int64, found bool, err error) {
	var row struct {
		ModelID   int64 `db:"model_id"`
		VersionID int64 `db:"id"`
	}
	err = r.db.GetContext(ctx, &row, `
		SELECT mv.model_id AS model_id, mv.id AS id
		FROM model_versions mv
		JOIN model_version_blobs mvb ON mvb.model_version_id = mv.id
		WHERE mvb.blob_hash = $1 AND mvb.role = $2
		ORDER BY mv.id
		LIMIT 1`, hash, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, apperr.Wrap(apperr.CodeFatalInternal, "looking up version by primary blob", err)
	}
	return row.ModelID, row.VersionID, true, nil
}

// GetThumbnail fetches the derived thumbnail row for an owner, if any.
func (r *Repository) GetThumbnail(ctx context.Context, ownerKind assetmodel.ThumbnailOwnerKind, ownerID int64) (*assetmodel.Thumbnail, error) {
	var t assetmodel.Thumbnail
	err := r.db.GetContext(ctx, &t,
		`SELECT * FROM thumbnails WHERE owner_kind = $1 AND owner_id = $2`, ownerKind, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "thumbnail not found", err)
	}
	return &t, nil
}

// GetTextureSet fetches a texture set by id.
func (r *Repository) GetTextureSet(ctx context.Context, id int64) (*assetmodel.TextureSet, error) {
	var ts assetmodel.TextureSet
	err := r.db.GetContext(ctx, &ts, `SELECT * FROM texture_sets WHERE id = $1`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "texture set not found", err)
	}
	return &ts, nil
}

// ListTextures returns a set's textures for external enumeration.
// SPLIT_CHANNEL rows are an internal placeholder and never surface here;
// callers that need the full set (invariant checks) read inside AddTexture's
// own transaction instead.
func (r *Repository) ListTextures(ctx context.Context, textureSetID int64) ([]assetmodel.Texture, error) {
	var textures []assetmodel.Texture
	err := r.db.SelectContext(ctx, &textures,
		`SELECT * FROM textures WHERE texture_set_id = $1 AND type <> 'SPLIT_CHANNEL' ORDER BY id`, textureSetID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "listing textures", err)
	}
	return textures, nil
}

// ListTextureSets returns a page of non-deleted texture sets.
func (r *Repository) ListTextureSets(ctx context.Context, page, pageSize int) (ListResult[assetmodel.TextureSet], error) {
	params := ListParams{Page: page, PageSize: pageSize}
	p, ps, offset := params.normalized()

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM texture_sets WHERE is_deleted = false`); err != nil {
		return ListResult[assetmodel.TextureSet]{}, apperr.Wrap(apperr.CodeFatalInternal, "counting texture sets", err)
	}

	var items []assetmodel.TextureSet
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM texture_sets WHERE is_deleted = false ORDER BY id LIMIT $1 OFFSET $2`, ps, offset)
	if err != nil {
		return ListResult[assetmodel.TextureSet]{}, apperr.Wrap(apperr.CodeFatalInternal, "listing texture sets", err)
	}

	totalPages := int((total + int64(ps) - 1) / int64(ps))
	return ListResult[assetmodel.TextureSet]{
		Items: items, TotalCount: total, Page: p, PageSize: ps, TotalPages: totalPages,
	}, nil
}

// GetSound fetches a sound by id.
func (r *Repository) GetSound(ctx context.Context, id int64) (*assetmodel.Sound, error) {
	var s assetmodel.Sound
	err := r.db.GetContext(ctx, &s, `SELECT * FROM sounds WHERE id = $1`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "sound not found", err)
	}
	return &s, nil
}

// ListSounds returns a page of non-deleted sounds.
func (r *Repository) ListSounds(ctx context.Context, page, pageSize int) (ListResult[assetmodel.Sound], error) {
	params := ListParams{Page: page, PageSize: pageSize}
	p, ps, offset := params.normalized()

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM sounds WHERE is_deleted = false`); err != nil {
		return ListResult[assetmodel.Sound]{}, apperr.Wrap(apperr.CodeFatalInternal, "counting sounds", err)
	}
	var items []assetmodel.Sound
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM sounds WHERE is_deleted = false ORDER BY id LIMIT $1 OFFSET $2`, ps, offset)
	if err != nil {
		return ListResult[assetmodel.Sound]{}, apperr.Wrap(apperr.CodeFatalInternal, "listing sounds", err)
	}
	totalPages := int((total + int64(ps) - 1) / int64(ps))
	return ListResult[assetmodel.Sound]{Items: items, TotalCount: total, Page: p, PageSize: ps, TotalPages: totalPages}, nil
}

// GetSprite fetches a sprite by id.
func (r *Repository) GetSprite(ctx context.Context, id int64) (*assetmodel.Sprite, error) {
	var s assetmodel.Sprite
	err := r.db.GetContext(ctx, &s, `SELECT * FROM sprites WHERE id = $1`, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, "sprite not found", err)
	}
	return &s, nil
}

// ListSprites returns a page of non-deleted sprites.
func (r *Repository) ListSprites(ctx context.Context, page, pageSize int) (ListResult[assetmodel.Sprite], error) {
	params := ListParams{Page: page, PageSize: pageSize}
	p, ps, offset := params.normalized()

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM sprites WHERE is_deleted = false`); err != nil {
		return ListResult[assetmodel.Sprite]{}, apperr.Wrap(apperr.CodeFatalInternal, "counting sprites", err)
	}
	var items []assetmodel.Sprite
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM sprites WHERE is_deleted = false ORDER BY id LIMIT $1 OFFSET $2`, ps, offset)
	if err != nil {
		return ListResult[assetmodel.Sprite]{}, apperr.Wrap(apperr.CodeFatalInternal, "listing sprites", err)
	}
	totalPages := int((total + int64(ps) - 1) / int64(ps))
	return ListResult[assetmodel.Sprite]{Items: items, TotalCount: total, Page: p, PageSize: ps, TotalPages: totalPages}, nil
}

// ListRecycled enumerates every soft-deleted row across the recyclable
// kinds, grouped by kind. ModelVersions, Files, and Textures are always
// empty; see RecycleSnapshot's doc comment.
func (r *Repository) ListRecycled(ctx context.Context) (*assetmodel.RecycleSnapshot, error) {
	snapshot := &assetmodel.RecycleSnapshot{
		ModelVersions: []assetmodel.RecycleEntry{},
		Files:         []assetmodel.RecycleEntry{},
		Textures:      []assetmodel.RecycleEntry{},
	}

	var models []struct {
		ID        int64     `db:"id"`
		Name      string    `db:"name"`
		DeletedAt time.Time `db:"deleted_at"`
	}
	if err := r.db.SelectContext(ctx, &models,
		`SELECT id, name, deleted_at FROM models WHERE is_deleted = true`); err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "listing recycled models", err)
	}
	for _, m := range models {
		snapshot.Models = append(snapshot.Models, assetmodel.RecycleEntry{Kind: assetmodel.RecyclableModel, ID: m.ID, Name: m.Name, DeletedAt: m.DeletedAt})
	}

	var sets []struct {
		ID        int64     `db:"id"`
		Name      string    `db:"name"`
		DeletedAt time.Time `db:"deleted_at"`
	}
	if err := r.db.SelectContext(ctx, &sets,
		`SELECT id, name, deleted_at FROM texture_sets WHERE is_deleted = true`); err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "listing recycled texture sets", err)
	}
	for _, s := range sets {
		snapshot.TextureSets = append(snapshot.TextureSets, assetmodel.RecycleEntry{Kind: assetmodel.RecyclableTextureSet, ID: s.ID, Name: s.Name, DeletedAt: s.DeletedAt})
	}

	var sprites []struct {
		ID        int64     `db:"id"`
		Name      string    `db:"name"`
		DeletedAt time.Time `db:"deleted_at"`
	}
	if err := r.db.SelectContext(ctx, &sprites,
		`SELECT id, name, deleted_at FROM sprites WHERE is_deleted = true`); err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "listing recycled sprites", err)
	}
	for _, s := range sprites {
		snapshot.Sprites = append(snapshot.Sprites, assetmodel.RecycleEntry{Kind: assetmodel.RecyclableSprite, ID: s.ID, Name: s.Name, DeletedAt: s.DeletedAt})
	}

	var sounds []struct {
		ID        int64     `db:"id"`
		Name      string    `db:"name"`
		DeletedAt time.Time `db:"deleted_at"`
	}
	if err := r.db.SelectContext(ctx, &sounds,
		`SELECT id, name, deleted_at FROM sounds WHERE is_deleted = true`); err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "listing recycled sounds", err)
	}
	for _, s := range sounds {
		snapshot.Sounds = append(snapshot.Sounds, assetmodel.RecycleEntry{Kind: assetmodel.RecyclableSound, ID: s.ID, Name: s.Name, DeletedAt: s.DeletedAt})
	}

	return snapshot, nil
}
