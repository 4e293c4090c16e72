package ingest

import (
	"context"
	"errors"
	"log"
	"time"

	"solarsync/internal/deyecloud"
	"solarsync/internal/observability/metrics"
	"solarsync/internal/store"
)

const dateLayout = "2006-01-02"

const defaultStationPageSize = 20

// Summary totals a backfill run across its chunks.
type Summary struct {
	Chunks       int
	FailedChunks int
	Written      int
	Skipped      int
}

// Service orchestrates station sync and chunked telemetry backfill. Chunks
// run strictly in order; a chunk that fails to fetch is logged and skipped so
// the rest of the range still lands.
type Service struct {
	client   *deyecloud.Client
	daily    *store.DailyRepository
	frames   *store.FrameRepository
	stations *store.StationRepository
	logger   *log.Logger

	chunkDays  int
	chunkDelay time.Duration
	pageSize   int
	loc        *time.Location
	sleep      func(time.Duration)
}

// NewService constructs a service.
func NewService(
	client *deyecloud.Client,
	daily *store.DailyRepository,
	frames *store.FrameRepository,
	stations *store.StationRepository,
	logger *log.Logger,
	opts ...ServiceOption,
) (*Service, error) {
	if client == nil {
		return nil, errors.New("ingest service: nil client")
	}
	if daily == nil || frames == nil || stations == nil {
		return nil, errors.New("ingest service: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{
		client:     client,
		daily:      daily,
		frames:     frames,
		stations:   stations,
		logger:     logger,
		chunkDays:  DefaultChunkDays,
		chunkDelay: time.Second,
		pageSize:   defaultStationPageSize,
		loc:        time.Local,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithChunkDays overrides the vendor request window.
func WithChunkDays(days int) ServiceOption {
	return func(s *Service) {
		if days > 0 {
			s.chunkDays = days
		}
	}
}

// WithChunkDelay overrides the self-imposed delay between chunk fetches.
func WithChunkDelay(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d >= 0 {
			s.chunkDelay = d
		}
	}
}

// WithLocation sets the timezone frame timestamps are rendered in.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithSleep replaces the inter-chunk sleep, for tests.
func WithSleep(fn func(time.Duration)) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// SyncStations refreshes the local station table from the vendor and returns
// the number of stations written.
func (s *Service) SyncStations(ctx context.Context) (int, error) {
	written := 0
	for page := 1; ; page++ {
		list, err := s.client.ListStations(ctx, page, s.pageSize)
		if err != nil {
			return written, err
		}
		if len(list) == 0 {
			break
		}
		for _, st := range list {
			if err := s.stations.Upsert(ctx, MapStation(st)); err != nil {
				s.logger.Printf("ingest: station %d upsert failed: %v", st.ID, err)
				continue
			}
			written++
		}
		if len(list) < s.pageSize {
			break
		}
	}
	metrics.AddRowsWritten("station_info", written)
	return written, nil
}

// BackfillDaily ingests daily energy aggregates for [start, end] inclusive.
func (s *Service) BackfillDaily(ctx context.Context, stationID int64, start, end time.Time) (Summary, error) {
	return s.backfill(ctx, stationID, start, end, s.ingestDailyChunk)
}

// BackfillFrames ingests frame-level power samples for [start, end] inclusive.
func (s *Service) BackfillFrames(ctx context.Context, stationID int64, start, end time.Time) (Summary, error) {
	return s.backfill(ctx, stationID, start, end, s.ingestFrameChunk)
}

// DailyUpdate ingests yesterday's daily aggregate, the cron entry point.
func (s *Service) DailyUpdate(ctx context.Context, stationID int64) (Summary, error) {
	yesterday := time.Now().In(s.loc).AddDate(0, 0, -1)
	return s.BackfillDaily(ctx, stationID, yesterday, yesterday)
}

type chunkFunc func(ctx context.Context, stationID int64, c Chunk) (store.BatchResult, error)

func (s *Service) backfill(ctx context.Context, stationID int64, start, end time.Time, ingest chunkFunc) (Summary, error) {
	var sum Summary
	if stationID == 0 {
		return sum, errors.New("ingest service: missing station id")
	}

	it, err := PlanChunks(start, end, s.chunkDays)
	if err != nil {
		return sum, err
	}

	first := true
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if !first {
			s.sleep(s.chunkDelay)
		}
		first = false
		sum.Chunks++

		chunkStart := time.Now()
		res, err := ingest(ctx, stationID, c)
		if err != nil {
			metrics.ObserveChunk(metrics.ResultError, time.Since(chunkStart))
			s.logger.Printf("ingest: station %d chunk %s..%s failed: %v",
				stationID, c.Start.Format(dateLayout), c.End.Format(dateLayout), err)
			sum.FailedChunks++
			continue
		}
		metrics.ObserveChunk(metrics.ResultSuccess, time.Since(chunkStart))
		sum.Written += res.Written
		sum.Skipped += res.Skipped
		for _, f := range res.Failed {
			s.logger.Printf("ingest: station %d chunk %s..%s row %d skipped: %v",
				stationID, c.Start.Format(dateLayout), c.End.Format(dateLayout), f.Index, f.Err)
		}
	}
	return sum, nil
}

func (s *Service) ingestDailyChunk(ctx context.Context, stationID int64, c Chunk) (store.BatchResult, error) {
	items, err := s.client.StationHistory(ctx, stationID, deyecloud.GranularityDaily,
		c.Start.Format(dateLayout), c.End.Format(dateLayout))
	if err != nil {
		return store.BatchResult{}, err
	}

	records := make([]store.DailyRecord, 0, len(items))
	dropped := 0
	for _, item := range items {
		rec, ok := MapDaily(stationID, item)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if dropped > 0 {
		metrics.AddRowsSkipped("daily_data", "no_date", dropped)
		s.logger.Printf("ingest: station %d dropped %d daily items without a date", stationID, dropped)
	}

	res, err := s.daily.UpsertBatch(ctx, records)
	if err != nil {
		return store.BatchResult{}, err
	}
	metrics.AddRowsWritten("daily_data", res.Written)
	res.Skipped += dropped
	return res, nil
}

func (s *Service) ingestFrameChunk(ctx context.Context, stationID int64, c Chunk) (store.BatchResult, error) {
	items, err := s.client.StationHistory(ctx, stationID, deyecloud.GranularityFrame,
		c.Start.Format(dateLayout), c.End.Format(dateLayout))
	if err != nil {
		return store.BatchResult{}, err
	}

	records := make([]store.FrameRecord, 0, len(items))
	dropped := 0
	for _, item := range items {
		rec, ok := MapFrame(stationID, item, s.loc)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if dropped > 0 {
		metrics.AddRowsSkipped("daily_logs", "no_timestamp", dropped)
		s.logger.Printf("ingest: station %d dropped %d frame items without a timestamp", stationID, dropped)
	}

	res, err := s.frames.InsertBatch(ctx, records)
	if err != nil {
		return store.BatchResult{}, err
	}
	metrics.AddRowsWritten("daily_logs", res.Written)
	res.Skipped += dropped
	return res, nil
}
