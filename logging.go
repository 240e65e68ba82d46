package knowledge

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "knowledge"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) Ingest(ctx context.Context) (int, error) {
	log := mw.log.With(
		zap.String("action", "ingest"),
	)

	count, err := mw.next.Ingest(ctx)
	if err != nil {
		log.Error(err.Error())
		return 0, err
	}

	if count == 0 {
		log.Warn("no chunks ingested")
		return 0, nil
	}

	log.Info("corpus ingested", zap.Int("chunks", count))
	return count, nil
}

func (mw *loggingMiddleware) Retrieve(ctx context.Context, question string, k ...int) ([]SearchResult, error) {
	log := mw.log.With(
		zap.String("action", "retrieve"),
		zap.String("question", question),
	)

	if len(k) > 0 {
		log = log.With(
			zap.Int("k", k[0]),
		)
	}

	results, err := mw.next.Retrieve(ctx, question, k...)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("chunks retrieved", zap.Int("count", len(results)))
	return results, nil
}
