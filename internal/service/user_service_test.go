package service

import (
	"context"
	"errors"
	"testing"

	"members/internal/model"
)

func TestGetUserSelfOrViewAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice@example.com", "s3cret-pass", model.MemberRoleName)
	bob := f.addUser(t, "bob@example.com", "s3cret-pass", model.MemberRoleName)
	admin := f.addUser(t, "admin@example.com", "s3cret-pass", model.AdminRoleName)

	if _, err := f.users.GetUser(ctx, f.actor(t, alice), alice.ID); err != nil {
		t.Fatalf("self view: %v", err)
	}
	if _, err := f.users.GetUser(ctx, f.actor(t, alice), bob.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.users.GetUser(ctx, f.anonymous(t), bob.ID); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	view, err := f.users.GetUser(ctx, f.actor(t, admin), bob.ID)
	if err != nil {
		t.Fatalf("admin view: %v", err)
	}
	if view.DisplayName != "Test bob" {
		t.Fatalf("unexpected display name %q", view.DisplayName)
	}
}

func TestListUsersRequiresViewAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice@example.com", "s3cret-pass", model.MemberRoleName)
	admin := f.addUser(t, "admin@example.com", "s3cret-pass", model.AdminRoleName)

	if _, _, err := f.users.ListUsers(ctx, f.actor(t, alice), 1, 20); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	users, total, err := f.users.ListUsers(ctx, f.actor(t, admin), 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Fatalf("expected 2 users, got %d/%d", len(users), total)
	}
}

func TestChangeOwnPasswordNeedsOldPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice@example.com", "old-password", model.MemberRoleName)
	self := f.actor(t, alice)

	err := f.users.ChangePassword(ctx, self, alice.ID, ChangePasswordRequest{NewPassword: "new-password"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error without old password, got %v", err)
	}
	err = f.users.ChangePassword(ctx, self, alice.ID, ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-password"})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	err = f.users.ChangePassword(ctx, self, alice.ID, ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"})
	if err != nil {
		t.Fatalf("change: %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, "alice@example.com", "new-password"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestAdminPasswordResetEndsSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice@example.com", "old-password", model.MemberRoleName)
	bob := f.addUser(t, "bob@example.com", "s3cret-pass", model.MemberRoleName)
	admin := f.addUser(t, "admin@example.com", "s3cret-pass", model.AdminRoleName)

	sess, err := f.auth.StartSession(ctx, alice.ID, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	err = f.users.ChangePassword(ctx, f.actor(t, bob), alice.ID, ChangePasswordRequest{NewPassword: "hijacked"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if err := f.users.ChangePassword(ctx, f.actor(t, admin), alice.ID, ChangePasswordRequest{NewPassword: "reset-password"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := f.auth.ResolveSession(ctx, sess.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected old session to be gone, got %v", err)
	}
}

func TestApproveAndAssignRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice@example.com", "s3cret-pass", model.MemberRoleName)
	admin := f.addUser(t, "admin@example.com", "s3cret-pass", model.AdminRoleName)
	adminActor := f.actor(t, admin)

	if _, err := f.users.ApproveUser(ctx, f.actor(t, alice), alice.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden self-approval, got %v", err)
	}
	if _, err := f.users.ApproveUser(ctx, adminActor, alice.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	anon := f.role(t, model.AnonymousRoleName)
	if _, err := f.users.AssignRole(ctx, adminActor, alice.ID, AssignRoleRequest{RoleID: anon.ID}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for anonymous role, got %v", err)
	}
	adminRole := f.role(t, model.AdminRoleName)
	view, err := f.users.AssignRole(ctx, adminActor, alice.ID, AssignRoleRequest{RoleID: adminRole.ID})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if view.Role == nil || view.Role.Name != model.AdminRoleName || !view.CanOrganize {
		t.Fatalf("unexpected view after promotion: %+v", view)
	}
}

func TestUpdateUserSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice@example.com", "s3cret-pass", model.MemberRoleName)
	f.addUser(t, "bob@example.com", "s3cret-pass", model.MemberRoleName)
	self := f.actor(t, alice)

	taken := "BOB@example.com"
	if _, err := f.users.UpdateUser(ctx, self, alice.ID, UpdateUserRequest{Email: &taken}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	first := "Alicia"
	view, err := f.users.UpdateUser(ctx, self, alice.ID, UpdateUserRequest{FirstName: &first})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if view.FirstName != "Alicia" {
		t.Fatalf("expected Alicia, got %q", view.FirstName)
	}
}

func TestDeleteUserSelfOrManage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.addUser(t, "alice@example.com", "s3cret-pass", model.MemberRoleName)
	bob := f.addUser(t, "bob@example.com", "s3cret-pass", model.MemberRoleName)

	if err := f.users.DeleteUser(ctx, f.actor(t, bob), alice.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.users.DeleteUser(ctx, f.actor(t, alice), alice.ID); err != nil {
		t.Fatalf("delete self: %v", err)
	}
	if _, ok := f.store.users[alice.ID]; ok {
		t.Fatal("user still stored")
	}
}
