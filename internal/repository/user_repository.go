package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guardline/workforce-service/internal/domain"
)

// UserRepository defines persistence access for workforce users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	FindActiveByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*domain.User, error)
	FindActiveByEmails(ctx context.Context, emails []string) ([]domain.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	ListReports(ctx context.Context, supervisorID string) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id, email, firstName, lastName string) (*domain.User, error)
	UpdateSupervisorBatch(ctx context.Context, targetIDs []string, supervisorID *string) (int64, error)
	ApplyRoleChange(ctx context.Context, userID string, change domain.RoleChange) (*domain.User, error)
}

// UserFilter defines query params for directory listing.
type UserFilter struct {
	Role           *domain.Role
	SupervisorID   *string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

const userColumns = `id, external_id, email, first_name, last_name, role, supervisor_id, created_at, updated_at, deleted_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func scanUser(row pgx.Row, user *domain.User) error {
	return row.Scan(
		&user.ID,
		&user.ExternalID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.SupervisorID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (external_id, email, first_name, last_name, role, supervisor_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.ExternalID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.SupervisorID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE id=$1`

	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE external_id=$1
        ORDER BY deleted_at IS NOT NULL, created_at DESC
        LIMIT 1`

	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, externalID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindActiveByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE external_id=$1 AND deleted_at IS NULL`

	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, externalID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindActiveByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE email=$1 AND deleted_at IS NULL`

	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, email), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindActiveByEmails(ctx context.Context, emails []string) ([]domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE email = ANY($1) AND deleted_at IS NULL`

	return r.queryUsers(ctx, query, emails)
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE id = ANY($1)`

	return r.queryUsers(ctx, query, ids)
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.SupervisorID != nil {
		args = append(args, *filter.SupervisorID)
		clauses = append(clauses, fmt.Sprintf("supervisor_id=$%d", len(args)))
	}
	if !filter.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	return r.queryUsers(ctx, query, args...)
}

func (r *userRepository) ListReports(ctx context.Context, supervisorID string) ([]domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE supervisor_id=$1 AND deleted_at IS NULL
        ORDER BY email ASC`

	return r.queryUsers(ctx, query, supervisorID)
}

func (r *userRepository) UpdateProfile(ctx context.Context, id, email, firstName, lastName string) (*domain.User, error) {
	const query = `
        UPDATE users SET email=$2, first_name=$3, last_name=$4, updated_at=NOW()
        WHERE id=$1 AND deleted_at IS NULL
        RETURNING ` + userColumns

	var user domain.User
	if err := scanUser(r.pool.QueryRow(ctx, query, id, email, firstName, lastName), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateSupervisorBatch repoints every target at the given supervisor in one
// transaction. The batch commits only when every target row was updated;
// a missing or concurrently deleted target rolls the whole batch back.
func (r *userRepository) UpdateSupervisorBatch(ctx context.Context, targetIDs []string, supervisorID *string) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
        UPDATE users SET supervisor_id=$1, updated_at=NOW()
        WHERE id = ANY($2) AND deleted_at IS NULL`

	cmd, err := tx.Exec(ctx, query, supervisorID, targetIDs)
	if err != nil {
		return 0, err
	}
	if cmd.RowsAffected() != int64(len(targetIDs)) {
		return 0, fmt.Errorf("supervisor batch touched %d of %d users", cmd.RowsAffected(), len(targetIDs))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// ApplyRoleChange updates a user's role inside one transaction, keeping the
// supervisor graph consistent: a user leaving Employee loses their own
// supervisor, a user leaving Supervisor releases every report, and Unassign
// additionally marks the row deleted.
func (r *userRepository) ApplyRoleChange(ctx context.Context, userID string, change domain.RoleChange) (*domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const lockQuery = `
        SELECT ` + userColumns + `
        FROM users WHERE id=$1 AND deleted_at IS NULL
        FOR UPDATE`

	var current domain.User
	if err := scanUser(tx.QueryRow(ctx, lockQuery, userID), &current); err != nil {
		return nil, err
	}

	newRole := change.ResultingRole()

	if current.Role == domain.RoleSupervisor && newRole != domain.RoleSupervisor {
		const releaseReports = `
            UPDATE users SET supervisor_id=NULL, updated_at=NOW()
            WHERE supervisor_id=$1 AND deleted_at IS NULL`
		if _, err := tx.Exec(ctx, releaseReports, current.ID); err != nil {
			return nil, err
		}
	}

	var updateQuery string
	switch {
	case change.IsUnassign():
		updateQuery = `
            UPDATE users SET role=$1, supervisor_id=NULL, deleted_at=NOW(), updated_at=NOW()
            WHERE id=$2
            RETURNING ` + userColumns
	case newRole != domain.RoleEmployee:
		updateQuery = `
            UPDATE users SET role=$1, supervisor_id=NULL, updated_at=NOW()
            WHERE id=$2
            RETURNING ` + userColumns
	default:
		updateQuery = `
            UPDATE users SET role=$1, updated_at=NOW()
            WHERE id=$2
            RETURNING ` + userColumns
	}

	var updated domain.User
	if err := scanUser(tx.QueryRow(ctx, updateQuery, newRole, current.ID), &updated); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *userRepository) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
