package engine

import (
	"context"

	"github.com/google/uuid"

	"dipbot/internal/broker"
	"dipbot/internal/confirm"
	"dipbot/internal/logger"
	"dipbot/internal/models"
)

// Gate — шлюз исполнения: подтверждение, отправка брокеру и
// классификация исхода. Наружу не выходит ни одной необработанной
// ошибки — любой результат сводится к категории, по которой можно
// синхронизировать хранилище состояния.
type Gate struct {
	client    broker.Client
	confirmer confirm.Confirmer
	log       *logger.Logger
	dryRun    bool
}

func NewGate(client broker.Client, confirmer confirm.Confirmer, dryRun bool, log *logger.Logger) *Gate {
	return &Gate{
		client:    client,
		confirmer: confirmer,
		log:       log,
		dryRun:    dryRun,
	}
}

func (g *Gate) Place(ctx context.Context, req broker.OrderRequest, prompt string) models.OrderOutcome {
	entry := g.log.WithComponent("gate").WithFields(map[string]interface{}{
		"figi":      req.Figi,
		"quantity":  req.Quantity,
		"price":     req.Price,
		"direction": string(req.Direction),
	})

	if g.dryRun {
		entry.Info("Dry-run: ордер не отправлен.")
		return models.OrderOutcome{Category: models.OutcomeNotSent, RejectReason: "dry_run"}
	}

	if !g.confirmer.Confirm(ctx, prompt) {
		entry.Info("Подтверждение не получено, ордер не отправлен.")
		return models.OrderOutcome{Category: models.OutcomeNotSent, RejectReason: "confirmation missing"}
	}

	req.OrderID = uuid.New().String()

	result, err := g.client.PostOrder(ctx, req)
	if err != nil {
		entry.WithError(err).Error("Сбой отправки ордера.")
		return models.OrderOutcome{
			Category:      models.OutcomeAPIError,
			ClientOrderID: req.OrderID,
			RejectReason:  err.Error(),
			ErrorCode:     "UNKNOWN",
		}
	}

	outcome := classify(result)
	outcome.ClientOrderID = req.OrderID
	entry.WithFields(map[string]interface{}{
		"order_id": outcome.OrderID,
		"category": string(outcome.Category),
	}).Info("Ордер классифицирован.")
	return outcome
}

// classify сводит статус исполнения брокера к таксономии исходов.
// Незнакомый статус трактуем как «отправлен, не исполнен»: лучше лишний
// cooldown, чем дубль заявки.
func classify(result broker.OrderResult) models.OrderOutcome {
	outcome := models.OrderOutcome{
		OrderID:      result.OrderID,
		RejectReason: result.Message,
	}

	switch result.Status {
	case "EXECUTION_REPORT_STATUS_FILL":
		outcome.Category = models.OutcomeFilled
		outcome.OK = true
	case "EXECUTION_REPORT_STATUS_PARTIALLYFILL":
		outcome.Category = models.OutcomePartiallyFilled
	case "EXECUTION_REPORT_STATUS_REJECTED", "EXECUTION_REPORT_STATUS_CANCELLED":
		outcome.Category = models.OutcomeBrokerRejected
		outcome.ErrorCode = result.Status
	default:
		outcome.Category = models.OutcomeSentNotFilled
	}
	return outcome
}
