package device_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/device"
)

func TestService_Register(t *testing.T) {
	repo := device.NewInMemoryRepository()
	service := device.NewService(repo)
	ctx := context.Background()

	input := &models.DeviceRegisterRequest{
		Token:    "fcm-token-abcdef123456",
		Platform: models.PlatformAndroid,
	}

	result, created, err := service.Register(ctx, "usr_worker1", input)
	if err != nil {
		t.Fatalf("failed to register device: %v", err)
	}

	if !created {
		t.Error("expected first registration to create a device")
	}
	if !strings.HasPrefix(result.ID, "dev_") {
		t.Errorf("expected device ID to start with 'dev_', got %q", result.ID)
	}
	if !result.Active {
		t.Error("expected registered device to be active")
	}
	if result.TokenLast4 == nil || *result.TokenLast4 != "3456" {
		t.Errorf("expected tokenLast4 %q, got %v", "3456", result.TokenLast4)
	}
}

func TestService_Register_SameTokenUpserts(t *testing.T) {
	repo := device.NewInMemoryRepository()
	service := device.NewService(repo)
	ctx := context.Background()

	input := &models.DeviceRegisterRequest{
		Token:    "fcm-token-abcdef123456",
		Platform: models.PlatformAndroid,
	}

	first, created, err := service.Register(ctx, "usr_worker1", input)
	if err != nil {
		t.Fatalf("failed to register device: %v", err)
	}
	if !created {
		t.Fatal("expected first registration to create a device")
	}

	second, created, err := service.Register(ctx, "usr_worker1", input)
	if err != nil {
		t.Fatalf("failed to re-register device: %v", err)
	}

	if created {
		t.Error("expected re-registration to update, not create")
	}
	if second.ID != first.ID {
		t.Errorf("expected re-registration to keep device ID %q, got %q", first.ID, second.ID)
	}

	paged, err := service.List(ctx, "usr_worker1", 50)
	if err != nil {
		t.Fatalf("failed to list devices: %v", err)
	}
	if len(paged.Items) != 1 {
		t.Errorf("expected 1 device after re-registration, got %d", len(paged.Items))
	}
}

func TestService_Register_TokenTransfersOwnership(t *testing.T) {
	repo := device.NewInMemoryRepository()
	service := device.NewService(repo)
	ctx := context.Background()

	input := &models.DeviceRegisterRequest{
		Token:    "fcm-token-shared-device",
		Platform: models.PlatformIOS,
	}

	if _, _, err := service.Register(ctx, "usr_worker1", input); err != nil {
		t.Fatalf("failed to register device: %v", err)
	}

	// Same physical device signs in as a different user.
	if _, _, err := service.Register(ctx, "usr_worker2", input); err != nil {
		t.Fatalf("failed to transfer device: %v", err)
	}

	oldOwner, err := service.List(ctx, "usr_worker1", 50)
	if err != nil {
		t.Fatalf("failed to list devices: %v", err)
	}
	if len(oldOwner.Items) != 0 {
		t.Errorf("expected previous owner to have 0 devices, got %d", len(oldOwner.Items))
	}

	newOwner, err := service.List(ctx, "usr_worker2", 50)
	if err != nil {
		t.Fatalf("failed to list devices: %v", err)
	}
	if len(newOwner.Items) != 1 {
		t.Errorf("expected new owner to have 1 device, got %d", len(newOwner.Items))
	}
}

func TestService_Register_ReactivatesDeactivatedToken(t *testing.T) {
	repo := device.NewInMemoryRepository()
	service := device.NewService(repo)
	ctx := context.Background()

	input := &models.DeviceRegisterRequest{
		Token:    "fcm-token-comeback",
		Platform: models.PlatformWeb,
	}

	registered, _, err := service.Register(ctx, "usr_worker1", input)
	if err != nil {
		t.Fatalf("failed to register device: %v", err)
	}

	if err := service.Deactivate(ctx, "usr_worker1", registered.ID); err != nil {
		t.Fatalf("failed to deactivate device: %v", err)
	}

	reactivated, created, err := service.Register(ctx, "usr_worker1", input)
	if err != nil {
		t.Fatalf("failed to re-register device: %v", err)
	}
	if created {
		t.Error("expected reactivation to update the existing row")
	}
	if !reactivated.Active {
		t.Error("expected re-registered device to be active")
	}
}

func TestService_List_OrderedByCreation(t *testing.T) {
	repo := device.NewInMemoryRepository()
	service := device.NewService(repo)
	ctx := context.Background()

	base := time.Now().Add(-48 * time.Hour)
	older := &device.Device{
		ID:        "dev_older0000000000000000",
		UserID:    "usr_worker1",
		Platform:  device.PlatformAndroid,
		Token:     "fcm-token-older-device-01",
		Active:    true,
		CreatedAt: base,
		UpdatedAt: base,
	}
	newer := &device.Device{
		ID:        "dev_newer0000000000000000",
		UserID:    "usr_worker1",
		Platform:  device.PlatformIOS,
		Token:     "fcm-token-newer-device-02",
		Active:    true,
		CreatedAt: base.Add(time.Hour),
		UpdatedAt: base.Add(time.Hour),
	}
	for _, d := range []*device.Device{older, newer} {
		if _, err := repo.Upsert(ctx, d); err != nil {
			t.Fatalf("failed to seed device: %v", err)
		}
	}

	// Re-registering the older token refreshes updated_at but must not
	// move it ahead of the newer device.
	refresh := *older
	refresh.UpdatedAt = time.Now()
	if _, err := repo.Upsert(ctx, &refresh); err != nil {
		t.Fatalf("failed to refresh device: %v", err)
	}

	list, err := service.List(ctx, "usr_worker1", 50)
	if err != nil {
		t.Fatalf("failed to list devices: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(list.Items))
	}
	if list.Items[0].ID != "dev_newer0000000000000000" {
		t.Errorf("expected most recently created device first, got %q", list.Items[0].ID)
	}
	if list.Items[1].ID != "dev_older0000000000000000" {
		t.Errorf("expected oldest device last, got %q", list.Items[1].ID)
	}
}

func TestService_Deactivate(t *testing.T) {
	repo := device.NewInMemoryRepository()
	service := device.NewService(repo)
	ctx := context.Background()

	registered, _, err := service.Register(ctx, "usr_worker1", &models.DeviceRegisterRequest{
		Token:    "fcm-token-abcdef123456",
		Platform: models.PlatformAndroid,
	})
	if err != nil {
		t.Fatalf("failed to register device: %v", err)
	}

	if err := service.Deactivate(ctx, "usr_worker1", registered.ID); err != nil {
		t.Fatalf("failed to deactivate device: %v", err)
	}

	// Deactivating again is a no-op.
	if err := service.Deactivate(ctx, "usr_worker1", registered.ID); err != nil {
		t.Fatalf("expected repeated deactivation to succeed, got %v", err)
	}

	paged, err := service.List(ctx, "usr_worker1", 50)
	if err != nil {
		t.Fatalf("failed to list devices: %v", err)
	}
	if len(paged.Items) != 0 {
		t.Errorf("expected 0 active devices, got %d", len(paged.Items))
	}
}

func TestService_Deactivate_NotFound(t *testing.T) {
	repo := device.NewInMemoryRepository()
	service := device.NewService(repo)
	ctx := context.Background()

	err := service.Deactivate(ctx, "usr_worker1", "dev_missing")
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestService_Deactivate_WrongUser(t *testing.T) {
	repo := device.NewInMemoryRepository()
	service := device.NewService(repo)
	ctx := context.Background()

	registered, _, err := service.Register(ctx, "usr_worker1", &models.DeviceRegisterRequest{
		Token:    "fcm-token-abcdef123456",
		Platform: models.PlatformAndroid,
	})
	if err != nil {
		t.Fatalf("failed to register device: %v", err)
	}

	err = service.Deactivate(ctx, "usr_worker2", registered.ID)
	if !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound for another user's device, got %v", err)
	}
}

func TestService_ActiveTokens(t *testing.T) {
	repo := device.NewInMemoryRepository()
	service := device.NewService(repo)
	ctx := context.Background()

	register := func(userID, token string) *models.Device {
		t.Helper()
		d, _, err := service.Register(ctx, userID, &models.DeviceRegisterRequest{
			Token:    token,
			Platform: models.PlatformAndroid,
		})
		if err != nil {
			t.Fatalf("failed to register device: %v", err)
		}
		return d
	}

	register("usr_worker1", "token-w1-phone")
	inactive := register("usr_worker1", "token-w1-tablet")
	register("usr_worker2", "token-w2-phone")
	register("usr_worker3", "token-w3-phone")

	if err := service.Deactivate(ctx, "usr_worker1", inactive.ID); err != nil {
		t.Fatalf("failed to deactivate device: %v", err)
	}

	tokens, err := service.ActiveTokens(ctx, []string{"usr_worker1", "usr_worker2"})
	if err != nil {
		t.Fatalf("failed to resolve tokens: %v", err)
	}

	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %v", len(tokens), tokens)
	}
	got := map[string]bool{}
	for _, tok := range tokens {
		got[tok] = true
	}
	if !got["token-w1-phone"] || !got["token-w2-phone"] {
		t.Errorf("unexpected token set: %v", tokens)
	}
}

func TestRepository_DeactivateStale(t *testing.T) {
	repo := device.NewInMemoryRepository()
	ctx := context.Background()

	old := &device.Device{
		ID:        "dev_old",
		UserID:    "usr_worker1",
		Platform:  device.PlatformAndroid,
		Token:     "token-old",
		CreatedAt: time.Now().Add(-400 * 24 * time.Hour),
		UpdatedAt: time.Now().Add(-400 * 24 * time.Hour),
	}
	fresh := &device.Device{
		ID:        "dev_fresh",
		UserID:    "usr_worker1",
		Platform:  device.PlatformAndroid,
		Token:     "token-fresh",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if _, err := repo.Upsert(ctx, old); err != nil {
		t.Fatalf("failed to seed device: %v", err)
	}
	if _, err := repo.Upsert(ctx, fresh); err != nil {
		t.Fatalf("failed to seed device: %v", err)
	}

	count, err := repo.DeactivateStale(ctx, time.Now().Add(-270*24*time.Hour))
	if err != nil {
		t.Fatalf("failed to deactivate stale devices: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 stale device deactivated, got %d", count)
	}

	tokens, err := repo.ActiveTokensForUsers(ctx, []string{"usr_worker1"})
	if err != nil {
		t.Fatalf("failed to resolve tokens: %v", err)
	}
	if len(tokens) != 1 || tokens[0] != "token-fresh" {
		t.Errorf("expected only the fresh token to remain active, got %v", tokens)
	}
}
