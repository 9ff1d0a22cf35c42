package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/alert"
	"github.com/fekuna/omnipos-inventory-service/internal/alert/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/cache"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invDto "github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	reportNamespace  = "low-stock-report"
	DefaultReportTTL = 2 * time.Minute
)

type alertUseCase struct {
	txm       database.TxManager
	repo      alert.Repository
	ledger    inventory.Repository
	cache     cache.Store
	reportTTL time.Duration
	metrics   *metrics.Metrics
	logger    logger.ZapLogger
}

// NewAlertUseCase builds the low-stock evaluator. store may be nil, in which case
// the report is computed on every call.
func NewAlertUseCase(
	txm database.TxManager,
	repo alert.Repository,
	ledger inventory.Repository,
	store cache.Store,
	reportTTL time.Duration,
	m *metrics.Metrics,
	log logger.ZapLogger,
) alert.UseCase {
	if reportTTL <= 0 {
		reportTTL = DefaultReportTTL
	}
	return &alertUseCase{
		txm:       txm,
		repo:      repo,
		ledger:    ledger,
		cache:     store,
		reportTTL: reportTTL,
		metrics:   m,
		logger:    log,
	}
}

// Classify returns the severity of a thresholded level, or false when the level
// is healthy or has no reorder point.
func Classify(level *model.InventoryLevel) (model.AlertSeverity, bool) {
	if level == nil || !level.IsThresholded() {
		return "", false
	}
	available := level.Available()
	point := *level.ReorderPoint
	switch {
	case available <= 0:
		return model.SeverityOutOfStock, true
	case float64(available) < float64(point)*0.5:
		return model.SeverityCritical, true
	case available <= point:
		return model.SeverityLow, true
	}
	return "", false
}

// RecommendedQuantity is the configured reorder quantity, or enough to reach twice
// the reorder point.
func RecommendedQuantity(level *model.InventoryLevel) int {
	if level.ReorderQuantity != nil && *level.ReorderQuantity > 0 {
		return *level.ReorderQuantity
	}
	if level.ReorderPoint == nil {
		return 0
	}
	qty := *level.ReorderPoint*2 - level.Available()
	if qty < 0 {
		return 0
	}
	return qty
}

func (uc *alertUseCase) Evaluate(ctx context.Context, variantID, locationID string) (*dto.Evaluation, error) {
	result := &dto.Evaluation{VariantID: variantID, LocationID: locationID, Action: dto.ActionNone}

	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		level, err := uc.ledger.GetLevel(ctx, variantID, locationID)
		if err != nil {
			return err
		}
		open, err := uc.repo.GetOpen(ctx, variantID, locationID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		severity, alerting := Classify(level)
		switch {
		case alerting && open == nil:
			a := &model.LowStockAlert{
				ID:                       uuid.New().String(),
				VariantID:                variantID,
				LocationID:               locationID,
				Severity:                 severity,
				Status:                   model.AlertActive,
				CurrentQuantity:          level.Available(),
				ReorderPoint:             *level.ReorderPoint,
				RecommendedOrderQuantity: RecommendedQuantity(level),
				CreatedAt:                now,
				UpdatedAt:                now,
			}
			if err := uc.repo.Create(ctx, a); err != nil {
				return err
			}
			result.Action, result.Alert = dto.ActionCreated, a

		case alerting:
			if open.Severity != severity || open.CurrentQuantity != level.Available() ||
				open.ReorderPoint != *level.ReorderPoint || open.RecommendedOrderQuantity != RecommendedQuantity(level) {
				open.Severity = severity
				open.CurrentQuantity = level.Available()
				open.ReorderPoint = *level.ReorderPoint
				open.RecommendedOrderQuantity = RecommendedQuantity(level)
				open.UpdatedAt = now
				if err := uc.repo.Update(ctx, open); err != nil {
					return err
				}
				result.Action = dto.ActionUpdated
			}
			result.Alert = open

		case open != nil:
			if level != nil {
				open.CurrentQuantity = level.Available()
			}
			open.Resolve("", "stock recovered above reorder point", now)
			if err := uc.repo.Update(ctx, open); err != nil {
				return err
			}
			result.Action, result.Alert = dto.ActionResolved, open
		}

		if alerting {
			result.Severity = &severity
		}
		if result.Action != dto.ActionNone {
			uc.invalidateReport(ctx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.RecordLowStockEvaluation(string(result.Action))
	if result.Action != dto.ActionNone {
		uc.logger.Info("Low stock alert evaluated",
			zap.String("variant_id", variantID),
			zap.String("location_id", locationID),
			zap.String("action", string(result.Action)),
		)
	}
	return result, nil
}

// Sweep evaluates every thresholded level plus every pair with an open alert, so
// alerts on rows whose reorder point was removed are resolved too.
func (uc *alertUseCase) Sweep(ctx context.Context) (*dto.SweepResult, error) {
	levels, err := uc.ledger.ListThresholded(ctx)
	if err != nil {
		return nil, err
	}
	open, _, err := uc.repo.List(ctx, &dto.AlertFilters{OpenOnly: true})
	if err != nil {
		return nil, err
	}

	type pair struct{ variantID, locationID string }
	seen := map[pair]bool{}
	pairs := []pair{}
	add := func(p pair) {
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	for _, l := range levels {
		add(pair{l.VariantID, l.LocationID})
	}
	for _, a := range open {
		add(pair{a.VariantID, a.LocationID})
	}

	result := &dto.SweepResult{}
	for _, p := range pairs {
		eval, err := uc.Evaluate(ctx, p.variantID, p.locationID)
		result.Evaluated++
		if err != nil {
			result.Failed++
			uc.logger.Error("Low stock evaluation failed",
				zap.String("variant_id", p.variantID),
				zap.String("location_id", p.locationID),
				zap.Error(err),
			)
			continue
		}
		switch eval.Action {
		case dto.ActionCreated:
			result.Created++
		case dto.ActionUpdated:
			result.Updated++
		case dto.ActionResolved:
			result.Resolved++
		}
	}
	return result, nil
}

func (uc *alertUseCase) Acknowledge(ctx context.Context, input *dto.AcknowledgeInput) (*model.LowStockAlert, error) {
	var a *model.LowStockAlert
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = uc.repo.GetByID(ctx, input.AlertID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperror.NotFound("low stock alert", input.AlertID)
		}
		if !a.IsOpen() {
			return apperror.InvalidState("low stock alert %s is already resolved", a.ID)
		}
		a.Resolve(input.UserID, input.Notes, time.Now().UTC())
		if err := uc.repo.Update(ctx, a); err != nil {
			return err
		}
		uc.invalidateReport(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (uc *alertUseCase) ListAlerts(ctx context.Context, filters *dto.AlertFilters) ([]model.LowStockAlert, int, error) {
	return uc.repo.List(ctx, filters)
}

func (uc *alertUseCase) LowStockReport(ctx context.Context, filters *dto.ReportFilters) (*dto.Report, error) {
	key := cache.Key{Namespace: reportNamespace, ID: filters.LocationID + ":" + string(filters.Severity)}
	report, hit, err := cache.GetOrLoad(ctx, uc.cache, key, uc.reportTTL, func(ctx context.Context) (*dto.Report, error) {
		return uc.buildReport(ctx, filters)
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Debug("Low stock report served", zap.Bool("cache_hit", hit), zap.String("key", key.String()))
	return report, nil
}

var severityRank = map[model.AlertSeverity]int{
	model.SeverityOutOfStock: 0,
	model.SeverityCritical:   1,
	model.SeverityLow:        2,
}

func (uc *alertUseCase) buildReport(ctx context.Context, filters *dto.ReportFilters) (*dto.Report, error) {
	levels, _, err := uc.ledger.FindLevels(ctx, &invDto.LevelFilters{LocationID: filters.LocationID, LowStock: true})
	if err != nil {
		return nil, err
	}

	report := &dto.Report{
		GeneratedAt: time.Now().UTC(),
		Counts:      map[model.AlertSeverity]int{},
		Items:       []dto.ReportItem{},
	}
	for i := range levels {
		l := &levels[i]
		severity, alerting := Classify(l)
		if !alerting || (filters.Severity != "" && severity != filters.Severity) {
			continue
		}
		report.Counts[severity]++
		report.Items = append(report.Items, dto.ReportItem{
			VariantID:                l.VariantID,
			LocationID:               l.LocationID,
			Severity:                 severity,
			QuantityOnHand:           l.QuantityOnHand,
			QuantityAvailable:        l.Available(),
			ReorderPoint:             *l.ReorderPoint,
			RecommendedOrderQuantity: RecommendedQuantity(l),
		})
	}
	sort.SliceStable(report.Items, func(i, j int) bool {
		a, b := report.Items[i], report.Items[j]
		if severityRank[a.Severity] != severityRank[b.Severity] {
			return severityRank[a.Severity] < severityRank[b.Severity]
		}
		if a.VariantID != b.VariantID {
			return a.VariantID < b.VariantID
		}
		return a.LocationID < b.LocationID
	})
	return report, nil
}

func (uc *alertUseCase) invalidateReport(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	database.AfterCommit(ctx, func() {
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := uc.cache.DeletePrefix(cctx, cache.Key{Namespace: reportNamespace}.Prefix()); err != nil && !errors.Is(err, context.Canceled) {
			uc.logger.Warn("Failed to invalidate low stock report cache", zap.Error(err))
		}
	})
}
