package assetgraph

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"modelibr/internal/apperr"
	"modelibr/internal/assetmodel"
)

// CreateModel inserts a new, versionless Model row. The first call to
// NewVersion is what gives it its first ModelVersion and activates it.
func (r *Repository) CreateModel(ctx context.Context, name string) (*assetmodel.Model, error) {
	var m assetmodel.Model
	err := r.db.GetContext(ctx, &m, `
		INSERT INTO models (name, created_at, updated_at)
		VALUES ($1, now(), now())
		RETURNING *`, name)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "creating model", err)
	}
	return &m, nil
}

// NewVersion allocates the next version number for modelID, serialized by a
// per-model Postgres advisory lock so concurrent uploads to the same model
// cannot collide or leave a gap. The first version created becomes active
// automatically. NewVersion publishes no event itself; ModelHandler.CreateModel
// broadcasts ActiveVersionChanged with prev=nil for a newly uploaded model
// (see SPEC_FULL.md §9).
func (r *Repository) NewVersion(ctx context.Context, modelID int64, description string) (version *assetmodel.ModelVersion, prevActiveID *int64, err error) {
	txErr := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, modelID); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "acquiring model version lock", err)
		}

		var model assetmodel.Model
		if err := tx.GetContext(ctx, &model, `SELECT * FROM models WHERE id = $1 FOR UPDATE`, modelID); err != nil {
			return apperr.Wrap(apperr.CodeNotFound, "model not found", err)
		}

		var maxVersion sql.NullInt64
		if err := tx.GetContext(ctx, &maxVersion,
			`SELECT MAX(version_num) FROM model_versions WHERE model_id = $1`, modelID); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "reading max version", err)
		}
		nextNum := 1
		if maxVersion.Valid {
			nextNum = int(maxVersion.Int64) + 1
		}

		var v assetmodel.ModelVersion
		if err := tx.GetContext(ctx, &v, `
			INSERT INTO model_versions (model_id, version_num, description, created_at)
			VALUES ($1, $2, $3, now())
			RETURNING *`, modelID, nextNum, description); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "creating model version", err)
		}

		if nextNum == 1 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE models SET active_version_id = $1, updated_at = now() WHERE id = $2`, v.ID, modelID); err != nil {
				return apperr.Wrap(apperr.CodeFatalInternal, "activating first version", err)
			}
		}

		version = &v
		prevActiveID = model.ActiveVersionID
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}
	return version, prevActiveID, nil
}

// AttachBlobToVersion records a role-tagged reference from a ModelVersion to
// a Blob. Idempotent: re-attaching the same (version, blob, role) is a no-op.
func (r *Repository) AttachBlobToVersion(ctx context.Context, versionID int64, blobHash string, role assetmodel.BlobRole) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var insertedHash string
		err := tx.GetContext(ctx, &insertedHash, `
			INSERT INTO model_version_blobs (model_version_id, blob_hash, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (model_version_id, blob_hash, role) DO NOTHING
			RETURNING blob_hash`, versionID, blobHash, role)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return apperr.Wrap(apperr.CodeFatalInternal, "attaching blob to version", err)
		}
		return adjustBlobRefCount(ctx, tx, insertedHash, 1)
	})
}

// adjustBlobRefCount is the single place that mutates blobs.reference_count,
// which lets collectible blobs be found with a reference_count = 0 scan
// (spec.md §4.8); nothing in this module deletes such blobs. Every insert/delete of a row that references a blob by hash goes
// through this so the count never drifts out of sync with actual references.
func adjustBlobRefCount(ctx context.Context, tx *sqlx.Tx, hash string, delta int) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE blobs SET reference_count = GREATEST(0, reference_count + $1) WHERE hash = $2`, delta, hash); err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "adjusting blob reference count", err)
	}
	return nil
}

// GetOrCreateBlob returns the blob record for hash, creating it if absent.
func (r *Repository) GetOrCreateBlob(ctx context.Context, blob assetmodel.Blob) (*assetmodel.Blob, bool, error) {
	var existing assetmodel.Blob
	err := r.db.GetContext(ctx, &existing, `SELECT * FROM blobs WHERE hash = $1`, blob.Hash)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, apperr.Wrap(apperr.CodeFatalInternal, "looking up blob", err)
	}

	var created assetmodel.Blob
	err = r.db.GetContext(ctx, &created, `
		INSERT INTO blobs (hash, byte_length, mime_hint, filename_hint, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (hash) DO UPDATE SET hash = EXCLUDED.hash
		RETURNING *`, blob.Hash, blob.ByteLength, blob.MimeHint, blob.FilenameHint, blob.Kind)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.CodeFatalInternal, "creating blob", err)
	}
	return &created, true, nil
}

// SetActiveVersion atomically switches a model's active version pointer
// after verifying the target version belongs to the model.
func (r *Repository) SetActiveVersion(ctx context.Context, modelID, versionID int64) (prevVersionID *int64, err error) {
	txErr := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var v assetmodel.ModelVersion
		if err := tx.GetContext(ctx, &v, `SELECT * FROM model_versions WHERE id = $1`, versionID); err != nil {
			return apperr.Wrap(apperr.CodeNotFound, "version not found", err)
		}
		if v.ModelID != modelID {
			return apperr.New(apperr.CodePrecondition, "version does not belong to model")
		}

		var model assetmodel.Model
		if err := tx.GetContext(ctx, &model, `SELECT * FROM models WHERE id = $1 FOR UPDATE`, modelID); err != nil {
			return apperr.Wrap(apperr.CodeNotFound, "model not found", err)
		}
		prevVersionID = model.ActiveVersionID

		if _, err := tx.ExecContext(ctx,
			`UPDATE models SET active_version_id = $1, updated_at = now() WHERE id = $2`, versionID, modelID); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "updating active version", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return prevVersionID, nil
}

// SetDefaultTextureSet refuses with PRECONDITION if textureSetID is non-nil
// and not among the model's active version's associated texture sets.
func (r *Repository) SetDefaultTextureSet(ctx context.Context, modelID int64, textureSetID *int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var model assetmodel.Model
		if err := tx.GetContext(ctx, &model, `SELECT * FROM models WHERE id = $1 FOR UPDATE`, modelID); err != nil {
			return apperr.Wrap(apperr.CodeNotFound, "model not found", err)
		}

		if textureSetID != nil {
			if model.ActiveVersionID == nil {
				return apperr.New(apperr.CodePrecondition, "model has no active version")
			}
			var associated bool
			err := tx.GetContext(ctx, &associated, `
				SELECT EXISTS(
					SELECT 1 FROM texture_set_model_versions
					WHERE texture_set_id = $1 AND model_version_id = $2
				)`, *textureSetID, *model.ActiveVersionID)
			if err != nil {
				return apperr.Wrap(apperr.CodeFatalInternal, "checking texture set association", err)
			}
			if !associated {
				return apperr.New(apperr.CodePrecondition, "texture set is not associated with the model's active version")
			}
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE models SET default_texture_set_id = $1, updated_at = now() WHERE id = $2`, textureSetID, modelID)
		if err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "updating default texture set", err)
		}
		return nil
	})
}

// SoftDeleteModel marks a model deleted; it remains visible via ListRecycled.
func (r *Repository) SoftDeleteModel(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE models SET is_deleted = true, deleted_at = now(), updated_at = now() WHERE id = $1 AND is_deleted = false`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "soft-deleting model", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.CodeNotFound, "model not found or already deleted")
	}
	return nil
}

// RestoreModel clears a model's soft-delete flags.
func (r *Repository) RestoreModel(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE models SET is_deleted = false, deleted_at = NULL, updated_at = now() WHERE id = $1 AND is_deleted = true`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "restoring model", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.CodeNotFound, "model not found or not deleted")
	}
	return nil
}

// PurgeModel permanently removes a soft-deleted model and everything it
// owns (versions, thumbnails, job events, membership edges). Referenced
// blobs are not deleted: their reference counts are decremented, and no
// code in this module removes a blob whose count reaches zero.
func (r *Repository) PurgeModel(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var model assetmodel.Model
		if err := tx.GetContext(ctx, &model, `SELECT * FROM models WHERE id = $1 FOR UPDATE`, id); err != nil {
			return apperr.Wrap(apperr.CodeNotFound, "model not found", err)
		}
		if !model.IsDeleted {
			return apperr.New(apperr.CodePrecondition, "model is not in the recycle bin")
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM job_events WHERE job_id IN (
				SELECT id FROM jobs WHERE target_entity_id IN (
					SELECT id FROM model_versions WHERE model_id = $1
				) AND status IN ('DONE', 'FAILED')
			)`, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging job events", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM jobs WHERE target_entity_id IN (
				SELECT id FROM model_versions WHERE model_id = $1
			) AND status IN ('DONE', 'FAILED')`, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging jobs", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM thumbnails WHERE owner_kind = 'MODEL_VERSION' AND owner_id IN (
				SELECT id FROM model_versions WHERE model_id = $1
			)`, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging thumbnails", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM texture_set_model_versions WHERE model_version_id IN (
				SELECT id FROM model_versions WHERE model_id = $1
			)`, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging texture set associations", err)
		}
		var releasedHashes []string
		if err := tx.SelectContext(ctx, &releasedHashes, `
			DELETE FROM model_version_blobs WHERE model_version_id IN (
				SELECT id FROM model_versions WHERE model_id = $1
			) RETURNING blob_hash`, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging version blob references", err)
		}
		for _, hash := range releasedHashes {
			if err := adjustBlobRefCount(ctx, tx, hash, -1); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM model_versions WHERE model_id = $1`, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging versions", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM container_memberships WHERE member_kind = 'MODEL' AND member_id = $1`, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging container memberships", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM models WHERE id = $1`, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging model", err)
		}
		return nil
	})
}

// CreateTextureSet inserts a new TextureSet with the given name and UV scale.
func (r *Repository) CreateTextureSet(ctx context.Context, name string, uvScale float64) (*assetmodel.TextureSet, error) {
	if uvScale <= 0 {
		uvScale = 1
	}
	var ts assetmodel.TextureSet
	err := r.db.GetContext(ctx, &ts, `
		INSERT INTO texture_sets (name, uv_scale, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		RETURNING *`, name, uvScale)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "creating texture set", err)
	}
	return &ts, nil
}

// CreateSound inserts a new versionless Sound pointing at an already-stored blob.
func (r *Repository) CreateSound(ctx context.Context, name, blobHash string) (*assetmodel.Sound, error) {
	var s assetmodel.Sound
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &s, `
			INSERT INTO sounds (name, blob_hash, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			RETURNING *`, name, blobHash); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "creating sound", err)
		}
		return adjustBlobRefCount(ctx, tx, blobHash, 1)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSprite inserts a new versionless Sprite pointing at an already-stored blob.
func (r *Repository) CreateSprite(ctx context.Context, name, blobHash string) (*assetmodel.Sprite, error) {
	var s assetmodel.Sprite
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &s, `
			INSERT INTO sprites (name, blob_hash, created_at, updated_at)
			VALUES ($1, $2, now(), now())
			RETURNING *`, name, blobHash); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "creating sprite", err)
		}
		return adjustBlobRefCount(ctx, tx, blobHash, 1)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AssociateTextureSetWithVersion links a TextureSet to a ModelVersion.
func (r *Repository) AssociateTextureSetWithVersion(ctx context.Context, textureSetID, modelVersionID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO texture_set_model_versions (texture_set_id, model_version_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (texture_set_id, model_version_id) DO NOTHING`, textureSetID, modelVersionID)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "associating texture set with version", err)
	}
	return nil
}

// AddTexture inserts a Texture into a set after checking the set-wide
// invariants: height-group exclusivity and per-channel uniqueness.
func (r *Repository) AddTexture(ctx context.Context, t assetmodel.Texture) (*assetmodel.Texture, error) {
	var created assetmodel.Texture
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var existing []assetmodel.Texture
		if err := tx.SelectContext(ctx, &existing,
			`SELECT * FROM textures WHERE texture_set_id = $1 FOR UPDATE`, t.TextureSetID); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "reading existing textures", err)
		}

		if assetmodel.HeightGroup[t.Type] {
			for _, e := range existing {
				if assetmodel.HeightGroup[e.Type] {
					return apperr.New(apperr.CodePrecondition, "height/displacement/bump are mutually exclusive within a texture set")
				}
			}
		}

		if t.Type != assetmodel.TextureTypeSplitChannel && t.SourceChannel != nil {
			for _, e := range existing {
				if e.BlobHash == t.BlobHash && e.SourceChannel != nil && *e.SourceChannel == *t.SourceChannel && e.Type != assetmodel.TextureTypeSplitChannel {
					return apperr.New(apperr.CodePrecondition, "blob/channel pair is already mapped to a texture type in this set")
				}
			}
		}

		if err := tx.GetContext(ctx, &created, `
			INSERT INTO textures (texture_set_id, blob_hash, type, source_channel, created_at)
			VALUES ($1, $2, $3, $4, now())
			RETURNING *`, t.TextureSetID, t.BlobHash, t.Type, t.SourceChannel); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "inserting texture", err)
		}
		return adjustBlobRefCount(ctx, tx, created.BlobHash, 1)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// softDeleteByTable and restoreByTable back the generic recycle-bin
// operations for the versionless entity kinds (TextureSet, Sprite, Sound),
// which all share the same is_deleted/deleted_at columns.
func (r *Repository) softDeleteByTable(ctx context.Context, table string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET is_deleted = true, deleted_at = now(), updated_at = now() WHERE id = $1 AND is_deleted = false`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "soft-deleting "+table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.CodeNotFound, table+" not found or already deleted")
	}
	return nil
}

func (r *Repository) restoreByTable(ctx context.Context, table string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET is_deleted = false, deleted_at = NULL, updated_at = now() WHERE id = $1 AND is_deleted = true`, id)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "restoring "+table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.CodeNotFound, table+" not found or not deleted")
	}
	return nil
}

// SoftDeleteTextureSet, RestoreTextureSet, SoftDeleteSprite, RestoreSprite,
// SoftDeleteSound, RestoreSound expose the generic helpers above per kind;
// table names are fixed literals, never caller input.
func (r *Repository) SoftDeleteTextureSet(ctx context.Context, id int64) error { return r.softDeleteByTable(ctx, "texture_sets", id) }
func (r *Repository) RestoreTextureSet(ctx context.Context, id int64) error   { return r.restoreByTable(ctx, "texture_sets", id) }
func (r *Repository) SoftDeleteSprite(ctx context.Context, id int64) error    { return r.softDeleteByTable(ctx, "sprites", id) }
func (r *Repository) RestoreSprite(ctx context.Context, id int64) error      { return r.restoreByTable(ctx, "sprites", id) }
func (r *Repository) SoftDeleteSound(ctx context.Context, id int64) error    { return r.softDeleteByTable(ctx, "sounds", id) }
func (r *Repository) RestoreSound(ctx context.Context, id int64) error      { return r.restoreByTable(ctx, "sounds", id) }

// purgeByTable permanently removes a soft-deleted row and the membership
// edges pointing at it. Table and memberKind are fixed literals, never
// caller input.
func (r *Repository) purgeByTable(ctx context.Context, table, memberKind string, id int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var isDeleted bool
		if err := tx.GetContext(ctx, &isDeleted, `SELECT is_deleted FROM `+table+` WHERE id = $1 FOR UPDATE`, id); err != nil {
			return apperr.Wrap(apperr.CodeNotFound, table+" not found", err)
		}
		if !isDeleted {
			return apperr.New(apperr.CodePrecondition, table+" is not in the recycle bin")
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM thumbnails WHERE owner_kind = $1 AND owner_id = $2`, memberKind, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging thumbnails", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM container_memberships WHERE member_kind = $1 AND member_id = $2`, memberKind, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging container memberships", err)
		}
		if table == "texture_sets" {
			var releasedHashes []string
			if err := tx.SelectContext(ctx, &releasedHashes,
				`DELETE FROM textures WHERE texture_set_id = $1 RETURNING blob_hash`, id); err != nil {
				return apperr.Wrap(apperr.CodeFatalInternal, "purging textures", err)
			}
			for _, hash := range releasedHashes {
				if err := adjustBlobRefCount(ctx, tx, hash, -1); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM texture_set_model_versions WHERE texture_set_id = $1`, id); err != nil {
				return apperr.Wrap(apperr.CodeFatalInternal, "purging texture set associations", err)
			}
		} else {
			var releasedHash string
			if err := tx.GetContext(ctx, &releasedHash, `SELECT blob_hash FROM `+table+` WHERE id = $1`, id); err != nil {
				return apperr.Wrap(apperr.CodeFatalInternal, "reading "+table+" blob reference", err)
			}
			if err := adjustBlobRefCount(ctx, tx, releasedHash, -1); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id); err != nil {
			return apperr.Wrap(apperr.CodeFatalInternal, "purging "+table, err)
		}
		return nil
	})
}

func (r *Repository) PurgeTextureSet(ctx context.Context, id int64) error {
	return r.purgeByTable(ctx, "texture_sets", "TEXTURE_SET", id)
}
func (r *Repository) PurgeSprite(ctx context.Context, id int64) error {
	return r.purgeByTable(ctx, "sprites", "SPRITE", id)
}
func (r *Repository) PurgeSound(ctx context.Context, id int64) error {
	return r.purgeByTable(ctx, "sounds", "SOUND", id)
}

// UpsertThumbnail creates or updates the derived Thumbnail row for an owner,
// used both to seed PENDING state at upload time and to record completion.
func (r *Repository) UpsertThumbnail(ctx context.Context, t assetmodel.Thumbnail) (*assetmodel.Thumbnail, error) {
	var result assetmodel.Thumbnail
	err := r.db.GetContext(ctx, &result, `
		INSERT INTO thumbnails (owner_kind, owner_id, status, output_blob_hash, width, height, size_bytes, error_message, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), $9)
		ON CONFLICT (owner_kind, owner_id) DO UPDATE SET
			status = EXCLUDED.status,
			output_blob_hash = EXCLUDED.output_blob_hash,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			size_bytes = EXCLUDED.size_bytes,
			error_message = EXCLUDED.error_message,
			processed_at = EXCLUDED.processed_at
		RETURNING *`,
		t.OwnerKind, t.OwnerID, t.Status, t.OutputBlobHash, t.Width, t.Height, t.SizeBytes, t.ErrorMessage, t.ProcessedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "upserting thumbnail", err)
	}
	return &result, nil
}

// CreatePack inserts a new Pack container; name is unique within its kind.
func (r *Repository) CreatePack(ctx context.Context, name, description string) (*assetmodel.Pack, error) {
	var p assetmodel.Pack
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO packs (name, description, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (name) DO NOTHING
		RETURNING *`, name, description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeConflict, "pack name already in use")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "creating pack", err)
	}
	return &p, nil
}

// CreateProject inserts a new Project container; name is unique within its kind.
func (r *Repository) CreateProject(ctx context.Context, name, description string) (*assetmodel.Project, error) {
	var p assetmodel.Project
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO projects (name, description, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (name) DO NOTHING
		RETURNING *`, name, description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeConflict, "project name already in use")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFatalInternal, "creating project", err)
	}
	return &p, nil
}

// AddToContainer associates memberKind/memberID with a container, idempotent
// on an already-existing edge. The member row is not validated to exist here
// — callers hold the member's id from a prior lookup, and a dangling edge
// left by a racing purge is harmless (it simply never matches a join).
func (r *Repository) AddToContainer(ctx context.Context, containerKind assetmodel.ContainerKind, containerID int64, memberKind assetmodel.MemberKind, memberID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO container_memberships (container_kind, container_id, member_kind, member_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (container_kind, container_id, member_kind, member_id) DO NOTHING`,
		containerKind, containerID, memberKind, memberID)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "adding container membership", err)
	}
	return nil
}

// RemoveFromContainer releases a membership edge; removing one that does not
// exist is a no-op rather than NOT_FOUND, matching the idempotent spirit of
// AddToContainer.
func (r *Repository) RemoveFromContainer(ctx context.Context, containerKind assetmodel.ContainerKind, containerID int64, memberKind assetmodel.MemberKind, memberID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM container_memberships
		WHERE container_kind = $1 AND container_id = $2 AND member_kind = $3 AND member_id = $4`,
		containerKind, containerID, memberKind, memberID)
	if err != nil {
		return apperr.Wrap(apperr.CodeFatalInternal, "removing container membership", err)
	}
	return nil
}
