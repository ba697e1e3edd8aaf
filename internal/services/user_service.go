package services

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"

	"audit-backend/internal/auth"
	"audit-backend/internal/models"
	"audit-backend/internal/repositories"

	"github.com/google/uuid"
)

const minPasswordLength = 6

type UserService struct {
	Repo       UserStore
	JWTManager *auth.JWTManager
}

func NewUserService(repo UserStore, jwtManager *auth.JWTManager) *UserService {
	return &UserService{
		Repo:       repo,
		JWTManager: jwtManager,
	}
}

// Login authenticates a user. Accounts with 2FA get a temp token instead of
// an access token and must finish through TOTPService.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, invalid("email", "email and password are required")
	}

	user, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	if user.TOTPEnabled {
		temp, err := s.JWTManager.GenerateTempToken(user)
		if err != nil {
			return nil, err
		}
		return &models.AuthResponse{Requires2FA: true, TempToken: temp}, nil
	}

	return s.issueToken(user)
}

// CompleteLogin issues the access token once the second factor passed
func (s *UserService) CompleteLogin(ctx context.Context, userID uuid.UUID) (*models.AuthResponse, error) {
	user, err := s.Repo.Get(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	return s.issueToken(user)
}

func (s *UserService) issueToken(user *models.User) (*models.AuthResponse, error) {
	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Register is a team leader signing up under a vendor. The account starts
// unapproved and inherits the vendor's warehouse.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	in := &models.CreateUserRequest{Name: req.Name, Email: req.Email, Username: req.Username, Password: req.Password}
	if err := validateAccount(in); err != nil {
		return nil, err
	}

	vendor, err := s.Repo.Get(ctx, req.VendorID)
	if err != nil || vendor.Role != models.RoleVendor {
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		return nil, invalid("vendor_id", "unknown vendor")
	}

	user, err := s.newAccount(in, models.RoleTeamLeader)
	if err != nil {
		return nil, err
	}
	user.VendorID = &vendor.ID
	user.WarehouseName = vendor.WarehouseName

	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, storeErr(err)
	}
	log.Printf("[Users] Team leader %s registered under vendor %s, awaiting approval", user.Username, vendor.Name)
	return user, nil
}

// CreateVendor is admin only; vendors are approved on creation
func (s *UserService) CreateVendor(ctx context.Context, actor *models.User, req *models.CreateUserRequest) (*models.User, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if err := validateAccount(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.WarehouseName) == "" {
		return nil, invalid("warehouse_name", "warehouse name is required")
	}

	user, err := s.newAccount(req, models.RoleVendor)
	if err != nil {
		return nil, err
	}
	user.WarehouseName = strings.TrimSpace(req.WarehouseName)
	user.IsApproved = true

	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, storeErr(err)
	}
	log.Printf("[Users] Vendor %s created for warehouse %s", user.Username, user.WarehouseName)
	return user, nil
}

// CreateWorker lets an approved team leader add a worker to its team. The
// worker starts unapproved until it completes the OTP handshake.
func (s *UserService) CreateWorker(ctx context.Context, actor *models.User, req *models.CreateUserRequest) (*models.User, error) {
	if actor.Role != models.RoleTeamLeader {
		return nil, ErrForbidden
	}
	if !actor.IsApproved {
		return nil, ErrNotApproved
	}
	if err := validateAccount(req); err != nil {
		return nil, err
	}

	user, err := s.newAccount(req, models.RoleWorker)
	if err != nil {
		return nil, err
	}
	user.TeamLeaderID = &actor.ID
	user.WarehouseName = actor.WarehouseName

	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, storeErr(err)
	}
	log.Printf("[Users] Worker %s created by team leader %s", user.Username, actor.Username)
	return user, nil
}

// ListVendors backs the registration form's vendor picker
func (s *UserService) ListVendors(ctx context.Context) ([]*models.User, error) {
	return s.Repo.List(ctx, models.UserFilter{Role: models.RoleVendor})
}

func (s *UserService) ListTeamLeaders(ctx context.Context, actor *models.User) ([]*models.User, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return s.Repo.List(ctx, models.UserFilter{Role: models.RoleTeamLeader})
	case models.RoleVendor:
		return s.Repo.List(ctx, models.UserFilter{Role: models.RoleTeamLeader, VendorID: &actor.ID})
	}
	return nil, ErrForbidden
}

func (s *UserService) ListWorkers(ctx context.Context, actor *models.User) ([]*models.User, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return s.Repo.List(ctx, models.UserFilter{Role: models.RoleWorker})
	case models.RoleTeamLeader:
		return s.Repo.List(ctx, models.UserFilter{Role: models.RoleWorker, TeamLeaderID: &actor.ID})
	case models.RoleVendor:
		leaders, err := s.Repo.List(ctx, models.UserFilter{Role: models.RoleTeamLeader, VendorID: &actor.ID})
		if err != nil {
			return nil, err
		}
		var workers []*models.User
		for _, leader := range leaders {
			team, err := s.Repo.List(ctx, models.UserFilter{Role: models.RoleWorker, TeamLeaderID: &leader.ID})
			if err != nil {
				return nil, err
			}
			workers = append(workers, team...)
		}
		return workers, nil
	}
	return nil, ErrForbidden
}

// ListPending returns the unapproved accounts the actor is able to approve
func (s *UserService) ListPending(ctx context.Context, actor *models.User) ([]*models.User, error) {
	pending := false
	switch actor.Role {
	case models.RoleAdmin:
		users, err := s.Repo.List(ctx, models.UserFilter{Approved: &pending})
		if err != nil {
			return nil, err
		}
		var out []*models.User
		for _, u := range users {
			if u.Role != models.RoleAdmin {
				out = append(out, u)
			}
		}
		return out, nil
	case models.RoleVendor:
		return s.Repo.List(ctx, models.UserFilter{Role: models.RoleTeamLeader, VendorID: &actor.ID, Approved: &pending})
	case models.RoleTeamLeader:
		return s.Repo.List(ctx, models.UserFilter{Role: models.RoleWorker, TeamLeaderID: &actor.ID, Approved: &pending})
	}
	return nil, ErrForbidden
}

// SetApproval toggles is_approved on an account the actor supervises
func (s *UserService) SetApproval(ctx context.Context, actor *models.User, targetID uuid.UUID, approved bool) (*models.User, error) {
	target, err := s.managed(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetApproval(ctx, target.ID, approved); err != nil {
		return nil, storeErr(err)
	}
	target.IsApproved = approved
	log.Printf("[Users] %s set approval=%v on %s (%s)", actor.Username, approved, target.Username, target.Role)
	return target, nil
}

// RejectTeamLeader denies a pending team leader registration by deleting the
// account. Irreversible. Approved leaders are revoked through SetApproval.
func (s *UserService) RejectTeamLeader(ctx context.Context, actor *models.User, targetID uuid.UUID) error {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleVendor {
		return ErrForbidden
	}
	target, err := s.managed(ctx, actor, targetID)
	if err != nil {
		return err
	}
	if target.Role != models.RoleTeamLeader {
		return invalid("id", "not a team leader")
	}
	if target.IsApproved {
		return ErrAlreadyApproved
	}
	if err := s.Repo.Delete(ctx, target.ID); err != nil {
		return storeErr(err)
	}
	log.Printf("[Users] Team leader %s rejected and deleted by %s", target.Username, actor.Username)
	return nil
}

// EnsureBootstrapAdmin creates the first admin account when none exists
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, email, name, password string) error {
	count, err := s.Repo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if email == "" || password == "" {
		log.Println("[Users] No admin account exists and no bootstrap credentials are configured")
		return nil
	}

	admin, err := s.newAccount(&models.CreateUserRequest{
		Name:     name,
		Email:    email,
		Username: "admin",
		Password: password,
	}, models.RoleAdmin)
	if err != nil {
		return err
	}
	admin.IsApproved = true
	if err := s.Repo.Create(ctx, admin); err != nil {
		return err
	}
	log.Printf("[Users] Bootstrap admin %s created", admin.Email)
	return nil
}

// managed loads target and checks the actor supervises it
func (s *UserService) managed(ctx context.Context, actor *models.User, targetID uuid.UUID) (*models.User, error) {
	target, err := s.Repo.Get(ctx, targetID)
	if err != nil {
		return nil, storeErr(err)
	}
	var leader *models.User
	if actor.Role == models.RoleVendor && target.Role == models.RoleWorker && target.TeamLeaderID != nil {
		leader, err = s.Repo.Get(ctx, *target.TeamLeaderID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}
	if !auth.CanManage(actor, target, leader) {
		return nil, ErrForbidden
	}
	return target, nil
}

func (s *UserService) newAccount(req *models.CreateUserRequest, role string) (*models.User, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Role:         role,
	}, nil
}

func validateAccount(req *models.CreateUserRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name", "name is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return invalid("email", "a valid email is required")
	}
	if strings.TrimSpace(req.Username) == "" {
		return invalid("username", "username is required")
	}
	if len(req.Password) < minPasswordLength {
		return invalid("password", "password must be at least 6 characters")
	}
	return nil
}
