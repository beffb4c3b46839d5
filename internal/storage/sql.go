package storage

import (
	_ "embed"
)

const (
	insertRunSQL = `
INSERT INTO runs (
                  created_at,
                  obs_id,
                  direction,
                  dr_km,
                  config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?, ?)`

	selectRunsSQL = `
SELECT
    id,
    created_at,
    obs_id,
    direction,
    dr_km,
    config
FROM runs
ORDER BY created_at`

	insertSampleSQL = `
INSERT INTO profile_samples (run_id,
                             rho_km,
                             oet_spm,
                             ret_spm,
                             set_spm,
                             p_norm,
                             phase_rad,
                             tau,
                             tau_thresh,
                             b_rad,
                             d_km,
                             f_km,
                             f_sky_hz,
                             phi_ora_rad,
                             phi_rl_rad,
                             rho_dot_kms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	countSamplesSQL = `
SELECT COUNT(*)
FROM profile_samples
WHERE
    run_id = ?`

	insertFitSQL = `
INSERT INTO ring_fits (created_at,
                       run_id,
                       obs_id,
                       lineshape,
                       flag,
                       cent_km,
                       cent_km_err,
                       cent_oet_spm,
                       cent_oet_utc,
                       cent_ret_spm,
                       rho_dot_kms,
                       ilong_deg,
                       rms_resid,
                       sumsq_resid,
                       params)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

//go:embed schema.sql
var initSchemaSQL string
