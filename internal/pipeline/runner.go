package pipeline

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// errSideEffectInFlight means another worker holds the claim for this side
// effect but has not committed a result yet. The delivery is acknowledged
// without work; if the holder crashed, the claim is cleaned up manually.
var errSideEffectInFlight = eris.New("pipeline: side effect in flight")

// runIdempotent guards a paid side effect with a claim row. Exactly one
// worker per key executes fn; a committed result is returned as-is on any
// later run. A failed fn releases the claim so the retry can execute again.
//
// The returned executed flag is false when the result came from a prior
// committed run; callers must still perform their ledger writes in that case,
// since a crash may have hit between the commit and those writes.
func runIdempotent[T any](ctx context.Context, st store.Store, key *model.IdempotencyKey, fn func(ctx context.Context) (T, error)) (result T, executed bool, err error) {
	var zero T

	claimErr := st.ClaimIdempotencyKey(ctx, key)
	if claimErr != nil {
		if !errors.Is(claimErr, store.ErrKeyClaimed) {
			return zero, false, claimErr
		}

		existing, err := st.GetIdempotencyKey(ctx, key.Key)
		if err != nil {
			return zero, false, err
		}
		if existing == nil {
			// Claim was released between our claim attempt and the lookup.
			return zero, false, eris.Wrapf(errSideEffectInFlight, "key %s", key.Key)
		}
		if !existing.Completed() {
			zap.L().Warn("idempotency key claimed but not completed",
				zap.String("key", key.Key),
				zap.String("stage", key.Stage),
			)
			return zero, false, eris.Wrapf(errSideEffectInFlight, "key %s", key.Key)
		}

		var cached T
		if len(existing.Result) > 0 {
			if err := json.Unmarshal(existing.Result, &cached); err != nil {
				return zero, false, eris.Wrapf(err, "pipeline: decode cached result for %s", key.Key)
			}
		}
		zap.L().Info("side effect already executed, using cached result",
			zap.String("key", key.Key),
			zap.String("stage", key.Stage),
		)
		return cached, false, nil
	}

	out, err := fn(ctx)
	if err != nil {
		if delErr := st.DeleteIdempotencyKey(ctx, key.Key); delErr != nil {
			zap.L().Error("failed to release idempotency claim",
				zap.String("key", key.Key),
				zap.Error(delErr),
			)
		}
		return zero, false, err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return zero, false, eris.Wrapf(err, "pipeline: encode result for %s", key.Key)
	}
	if err := st.CompleteIdempotencyKey(ctx, key.Key, raw); err != nil {
		return zero, false, err
	}
	return out, true, nil
}
