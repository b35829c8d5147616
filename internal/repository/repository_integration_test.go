package repository_test // Используем _test пакет для изоляции

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // Драйвер для PostgreSQL
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"vibe-server/internal/model"
	"vibe-server/internal/repository"
	"vibe-server/migrations"
)

// RepositoryIntegrationTestSuite проверяет реальное поведение репозиториев
// против PostgreSQL и Redis в контейнерах, в первую очередь семантику
// условного завершающего UPDATE.
type RepositoryIntegrationTestSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	tracks      repository.TrackRepository
	credits     repository.CreditRepository
	guard       repository.ReconcileGuard
	logger      *zap.Logger
}

// SetupSuite выполняется один раз перед всеми тестами в наборе
func (s *RepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err, "Failed to create logger for tests")

	// Запускаем контейнер PostgreSQL
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	pgConnStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get postgres connection string")

	s.pgPool, err = pgxpool.New(s.ctx, pgConnStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")

	// Применяем миграции из встроенной FS
	require.NoError(s.T(), s.runMigrations(pgConnStr), "Failed to run migrations")

	// Запускаем контейнер Redis
	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	redisHost, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	redisPort, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)

	s.redisClient = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port())})
	_, err = s.redisClient.Ping(s.ctx).Result()
	require.NoError(s.T(), err, "Failed to connect to test redis")

	s.tracks = repository.NewPgTrackRepository(s.pgPool, s.logger)
	s.credits = repository.NewPgCreditRepository(s.pgPool, s.logger)
	s.guard = repository.NewRedisReconcileGuard(s.redisClient, time.Minute, s.logger)
}

// TearDownSuite выполняется один раз после всех тестов в наборе
func (s *RepositoryIntegrationTestSuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate postgres container", zap.Error(err))
		}
	}
	if s.rdContainer != nil {
		if err := s.rdContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate redis container", zap.Error(err))
		}
	}
}

// Перед каждым тестом очищаем Redis и таблицы БД
func (s *RepositoryIntegrationTestSuite) SetupTest() {
	err := s.redisClient.FlushDB(s.ctx).Err()
	require.NoError(s.T(), err, "Failed to flush Redis DB")

	_, err = s.pgPool.Exec(s.ctx, "TRUNCATE TABLE tracks, user_credits")
	require.NoError(s.T(), err, "Failed to truncate tables")
}

// runMigrations применяет миграции к тестовой БД
func (s *RepositoryIntegrationTestSuite) runMigrations(dbURL string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance with iofs: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// TestRepositoryIntegrationTestSuite запускает набор тестов
func TestRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(RepositoryIntegrationTestSuite))
}

// --- Сами Тестовые Функции ---

func (s *RepositoryIntegrationTestSuite) insertPending(taskID string, owner *uuid.UUID) *model.Track {
	track := &model.Track{
		TaskID:              taskID,
		OwnerID:             owner,
		Prompt:              "calm lake at dawn",
		ExtendedPrompt:      "calm lake at dawn, lo-fi",
		ExtendedImagePrompt: "album cover art, calm lake at dawn, lo-fi",
	}
	require.NoError(s.T(), s.tracks.Create(s.ctx, track))
	return track
}

func (s *RepositoryIntegrationTestSuite) TestCreateAndGet() {
	t := s.T()
	owner := uuid.New()
	created := s.insertPending("task-1", &owner)

	byTask, err := s.tracks.GetByTaskID(s.ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, created.ID, byTask.ID)
	require.Equal(t, model.TrackStatusPending, byTask.Status)
	require.Nil(t, byTask.AudioURL)

	byID, err := s.tracks.GetByID(s.ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "task-1", byID.TaskID)

	_, err = s.tracks.GetByTaskID(s.ctx, "ghost")
	require.ErrorIs(t, err, model.ErrTrackNotFound)
}

func (s *RepositoryIntegrationTestSuite) TestComplete_ConditionalWrite() {
	t := s.T()
	owner := uuid.New()
	s.insertPending("task-1", &owner)

	img := "https://cdn/b.png"
	res := "2048x1152"
	params := model.CompleteTrackParams{
		Title:      "Dawn Mirror",
		Prompt:     "calm lake at dawn",
		AudioURL:   "https://cdn/a.mp3",
		ImageURL:   &img,
		Resolution: &res,
		Duration:   180,
	}

	// Первый завершающий UPDATE затрагивает строку и возвращает ее
	updated, won, err := s.tracks.Complete(s.ctx, "task-1", params)
	require.NoError(t, err)
	require.True(t, won, "first completing write should win")
	require.Equal(t, model.TrackStatusCompleted, updated.Status)
	require.Equal(t, "Dawn Mirror", updated.Title)
	require.NotNil(t, updated.AudioURL)
	require.Equal(t, "https://cdn/a.mp3", *updated.AudioURL)
	require.NotNil(t, updated.Resolution)
	require.Equal(t, "2048x1152", *updated.Resolution)

	// Второй, даже с другими полями, не затрагивает ни одной строки
	otherParams := params
	otherParams.Title = "Late Second Writer"
	lost, won, err := s.tracks.Complete(s.ctx, "task-1", otherParams)
	require.NoError(t, err)
	require.False(t, won, "second completing write must lose")
	require.Nil(t, lost)

	// И запись осталась от победителя
	current, err := s.tracks.GetByTaskID(s.ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, "Dawn Mirror", current.Title)
}

func (s *RepositoryIntegrationTestSuite) TestComplete_ConcurrentWriters() {
	t := s.T()
	owner := uuid.New()
	s.insertPending("task-1", &owner)

	params := model.CompleteTrackParams{
		Title:    "Race Winner",
		Prompt:   "calm lake at dawn",
		AudioURL: "https://cdn/a.mp3",
		Duration: 180,
	}

	const writers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, won, err := s.tracks.Complete(s.ctx, "task-1", params)
			require.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	require.Equal(t, 1, winners, "exactly one concurrent writer must win")
}

func (s *RepositoryIntegrationTestSuite) TestMarkFailed() {
	t := s.T()
	owner := uuid.New()
	s.insertPending("task-1", &owner)

	affected, err := s.tracks.MarkFailed(s.ctx, "task-1")
	require.NoError(t, err)
	require.True(t, affected)

	track, err := s.tracks.GetByTaskID(s.ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, model.TrackStatusFailed, track.Status)

	// Повторный перевод - no-op
	affected, err = s.tracks.MarkFailed(s.ctx, "task-1")
	require.NoError(t, err)
	require.False(t, affected)
}

func (s *RepositoryIntegrationTestSuite) TestMarkFailed_DoesNotTouchCompleted() {
	t := s.T()
	owner := uuid.New()
	s.insertPending("task-1", &owner)

	_, won, err := s.tracks.Complete(s.ctx, "task-1", model.CompleteTrackParams{
		Title: "Done", Prompt: "p", AudioURL: "https://cdn/a.mp3", Duration: 180,
	})
	require.NoError(t, err)
	require.True(t, won)

	// completed терминален: перевода в failed нет
	affected, err := s.tracks.MarkFailed(s.ctx, "task-1")
	require.NoError(t, err)
	require.False(t, affected)

	track, err := s.tracks.GetByTaskID(s.ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, model.TrackStatusCompleted, track.Status)
}

func (s *RepositoryIntegrationTestSuite) TestListByOwner() {
	t := s.T()
	owner := uuid.New()
	other := uuid.New()
	s.insertPending("task-1", &owner)
	s.insertPending("task-2", &owner)
	s.insertPending("task-3", &other)

	tracks, err := s.tracks.ListByOwner(s.ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	for _, tr := range tracks {
		require.Equal(t, owner, *tr.OwnerID)
	}
}

func (s *RepositoryIntegrationTestSuite) TestCredits_DeductAndGrant() {
	t := s.T()
	userID := uuid.New()

	// Баланс без записи - ноль
	balance, err := s.credits.GetBalance(s.ctx, userID)
	require.NoError(t, err)
	require.Zero(t, balance)

	require.NoError(t, s.credits.Grant(s.ctx, userID, 3))

	deducted, err := s.credits.Deduct(s.ctx, userID, 1)
	require.NoError(t, err)
	require.True(t, deducted)

	balance, err = s.credits.GetBalance(s.ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, 2, balance)

	// Списание сверх баланса не затрагивает строку
	deducted, err = s.credits.Deduct(s.ctx, userID, 5)
	require.NoError(t, err)
	require.False(t, deducted)

	balance, err = s.credits.GetBalance(s.ctx, userID)
	require.NoError(t, err)
	require.EqualValues(t, 2, balance)
}

func (s *RepositoryIntegrationTestSuite) TestCredits_ConcurrentDeductions() {
	t := s.T()
	userID := uuid.New()
	require.NoError(t, s.credits.Grant(s.ctx, userID, 5))

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.credits.Deduct(s.ctx, userID, 1)
			require.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	require.Equal(t, 5, succeeded, "deductions must not overdraw the balance")

	balance, err := s.credits.GetBalance(s.ctx, userID)
	require.NoError(t, err)
	require.Zero(t, balance)
}

func (s *RepositoryIntegrationTestSuite) TestReconcileGuard() {
	t := s.T()

	acquired, err := s.guard.Acquire(s.ctx, "task-1")
	require.NoError(t, err)
	require.True(t, acquired)

	// Повторный захват той же задачи - отказ
	acquired, err = s.guard.Acquire(s.ctx, "task-1")
	require.NoError(t, err)
	require.False(t, acquired)

	// Другая задача независима
	acquired, err = s.guard.Acquire(s.ctx, "task-2")
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, s.guard.Release(s.ctx, "task-1"))

	acquired, err = s.guard.Acquire(s.ctx, "task-1")
	require.NoError(t, err)
	require.True(t, acquired)
}
