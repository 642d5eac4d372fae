package repository_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/repository"
	testingutil "github.com/torresguilherme/magic-qr-flows/testing"
	"github.com/torresguilherme/magic-qr-flows/utils"
)

func TestQRCodeRepository(t *testing.T) {
	testingutil.RunWithDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewQRCodeRepository(testDB.DB)
		scans := repository.NewQRScanRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		other, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)

		t.Run("SaveAndLookup", func(t *testing.T) {
			qr := &models.QRCode{
				UUID:           uuid.New(),
				CustomerID:     owner.ID,
				Name:           "Menu",
				DestinationURL: "https://example.com/menu",
				IsDynamic:      true,
				IsActive:       utils.ToPtr(true),
			}
			require.NoError(t, repo.Save(ctx, qr))
			assert.NotZero(t, qr.ID)

			lookup, err := repo.LookupByUUID(ctx, qr.UUID)
			require.NoError(t, err)
			require.NotNil(t, lookup)
			assert.Equal(t, qr.ID, lookup.ID)
			assert.Equal(t, "https://example.com/menu", lookup.DestinationURL)
			assert.True(t, lookup.IsActive)
		})

		t.Run("LookupMissing", func(t *testing.T) {
			lookup, err := repo.LookupByUUID(ctx, uuid.New())
			require.NoError(t, err)
			assert.Nil(t, lookup)
		})

		t.Run("OwnerScoping", func(t *testing.T) {
			qr, err := fixtures.CreateTestQRCode(owner.ID, "Scoped", true)
			require.NoError(t, err)

			found, err := repo.ByOwnerAndUUID(ctx, other.ID, qr.UUID)
			require.NoError(t, err)
			assert.Nil(t, found)

			updated, err := repo.UpdateDestination(ctx, other.ID, qr.UUID, "https://evil.example.com")
			require.NoError(t, err)
			assert.Nil(t, updated)

			deleted, err := repo.DeleteByOwner(ctx, other.ID, qr.UUID)
			require.NoError(t, err)
			assert.False(t, deleted)

			still, err := repo.ByOwnerAndUUID(ctx, owner.ID, qr.UUID)
			require.NoError(t, err)
			require.NotNil(t, still)
			assert.Equal(t, qr.DestinationURL, still.DestinationURL)
		})

		t.Run("UpdateDestination", func(t *testing.T) {
			qr, err := fixtures.CreateTestQRCode(owner.ID, "Dynamic", true)
			require.NoError(t, err)

			updated, err := repo.UpdateDestination(ctx, owner.ID, qr.UUID, "https://example.com/new")
			require.NoError(t, err)
			require.NotNil(t, updated)
			assert.Equal(t, "https://example.com/new", updated.DestinationURL)
			assert.Equal(t, qr.Name, updated.Name)
			assert.Equal(t, qr.ID, updated.ID)
		})

		t.Run("UpdateDestinationIgnoresStatic", func(t *testing.T) {
			qr, err := fixtures.CreateTestQRCode(owner.ID, "Static", false)
			require.NoError(t, err)

			updated, err := repo.UpdateDestination(ctx, owner.ID, qr.UUID, "https://example.com/new")
			require.NoError(t, err)
			assert.Nil(t, updated)
		})

		t.Run("SetActive", func(t *testing.T) {
			qr, err := fixtures.CreateTestQRCode(owner.ID, "Toggle", true)
			require.NoError(t, err)

			updated, err := repo.SetActive(ctx, owner.ID, qr.UUID, false)
			require.NoError(t, err)
			require.NotNil(t, updated)
			assert.False(t, utils.IsTrue(updated.IsActive))

			lookup, err := repo.LookupByUUID(ctx, qr.UUID)
			require.NoError(t, err)
			require.NotNil(t, lookup)
			assert.False(t, lookup.IsActive)
		})

		t.Run("ConcurrentIncrements", func(t *testing.T) {
			qr, err := fixtures.CreateTestQRCode(owner.ID, "Counter", true)
			require.NoError(t, err)

			const n = 25
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, repo.IncrementScanCount(ctx, qr.ID))
				}()
			}
			wg.Wait()

			reloaded, err := repo.ByID(ctx, qr.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(n), reloaded.ScanCount)
		})

		t.Run("IncrementMissing", func(t *testing.T) {
			assert.Error(t, repo.IncrementScanCount(ctx, 999999))
		})

		t.Run("DeleteCascadesScans", func(t *testing.T) {
			qr, err := fixtures.CreateTestQRCode(owner.ID, "Doomed", true)
			require.NoError(t, err)
			require.NoError(t, scans.Save(ctx, &models.QRScan{QRCodeID: qr.ID, UserAgent: utils.ToPtr("test")}))

			deleted, err := repo.DeleteByOwner(ctx, owner.ID, qr.UUID)
			require.NoError(t, err)
			assert.True(t, deleted)

			count, err := scans.Count(ctx, models.QRScanFilter{QRCodeID: &qr.ID})
			require.NoError(t, err)
			assert.Zero(t, count)

			again, err := repo.DeleteByOwner(ctx, owner.ID, qr.UUID)
			require.NoError(t, err)
			assert.False(t, again)
		})

		t.Run("ListByOwnerNewestFirst", func(t *testing.T) {
			fresh, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			first, err := fixtures.CreateTestQRCode(fresh.ID, "First", true)
			require.NoError(t, err)
			second, err := fixtures.CreateTestQRCode(fresh.ID, "Second", false)
			require.NoError(t, err)

			rows, err := repo.ListByOwner(ctx, fresh.ID)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, second.UUID, rows[0].UUID)
			assert.Equal(t, first.UUID, rows[1].UUID)

			stats, err := repo.StatsByOwner(ctx, fresh.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), stats.TotalCodes)
			assert.Equal(t, int64(2), stats.ActiveCodes)
			assert.Zero(t, stats.TotalScans)
		})
	})
}
