package league

import "context"

// Store defines the interface for interacting with the league's data.
type Store interface {
	ListTeams(ctx context.Context) ([]Team, error)
	GetTeam(ctx context.Context, id string) (*Team, error)
	CreateTeam(ctx context.Context, in TeamInput) (*Team, error)
	UpdateTeam(ctx context.Context, id string, in TeamInput) (*Team, error)
	SetTeamLogo(ctx context.Context, id, logoURL string) error
	DeleteTeam(ctx context.Context, id string) error

	ListPlayers(ctx context.Context) ([]PlayerWithTeams, error)
	GetPlayers(ctx context.Context, ids []string) ([]Player, error)
	CreatePlayer(ctx context.Context, in PlayerInput) (*PlayerWithTeams, error)
	UpdatePlayer(ctx context.Context, id string, in PlayerInput) (*PlayerWithTeams, error)
	DeletePlayer(ctx context.Context, id string) error
	ListActiveMemberships(ctx context.Context, teamID string) ([]Membership, error)

	ListBouts(ctx context.Context) ([]BoutWithTeams, error)
	GetBout(ctx context.Context, id string) (*BoutWithTeams, error)
	CreateBout(ctx context.Context, in BoutInput) (*BoutWithTeams, error)
	UpdateBout(ctx context.Context, id string, in BoutInput) (*BoutWithTeams, error)
	UpdateBoutScore(ctx context.Context, id string, home, away int) error
	UpdateBoutStatus(ctx context.Context, id string, status BoutStatus) error
	DeleteBout(ctx context.Context, id string) error

	Dashboard(ctx context.Context) (*Dashboard, error)
}
