package league

import (
	"context"
	"sync"
)

// MockStore is a mock implementation of the Store interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	ListTeamsFunc             func(ctx context.Context) ([]Team, error)
	GetTeamFunc               func(ctx context.Context, id string) (*Team, error)
	CreateTeamFunc            func(ctx context.Context, in TeamInput) (*Team, error)
	UpdateTeamFunc            func(ctx context.Context, id string, in TeamInput) (*Team, error)
	SetTeamLogoFunc           func(ctx context.Context, id, logoURL string) error
	DeleteTeamFunc            func(ctx context.Context, id string) error
	ListPlayersFunc           func(ctx context.Context) ([]PlayerWithTeams, error)
	GetPlayersFunc            func(ctx context.Context, ids []string) ([]Player, error)
	CreatePlayerFunc          func(ctx context.Context, in PlayerInput) (*PlayerWithTeams, error)
	UpdatePlayerFunc          func(ctx context.Context, id string, in PlayerInput) (*PlayerWithTeams, error)
	DeletePlayerFunc          func(ctx context.Context, id string) error
	ListActiveMembershipsFunc func(ctx context.Context, teamID string) ([]Membership, error)
	ListBoutsFunc             func(ctx context.Context) ([]BoutWithTeams, error)
	GetBoutFunc               func(ctx context.Context, id string) (*BoutWithTeams, error)
	CreateBoutFunc            func(ctx context.Context, in BoutInput) (*BoutWithTeams, error)
	UpdateBoutFunc            func(ctx context.Context, id string, in BoutInput) (*BoutWithTeams, error)
	UpdateBoutScoreFunc       func(ctx context.Context, id string, home, away int) error
	UpdateBoutStatusFunc      func(ctx context.Context, id string, status BoutStatus) error
	DeleteBoutFunc            func(ctx context.Context, id string) error
	DashboardFunc             func(ctx context.Context) (*Dashboard, error)

	// Call records
	GetPlayersCalls            [][]string
	ListActiveMembershipsCalls []string
	CreateTeamCalls            []TeamInput
	SetTeamLogoCalls           []struct {
		ID      string
		LogoURL string
	}
	CreatePlayerCalls    []PlayerInput
	CreateBoutCalls      []BoutInput
	UpdateBoutScoreCalls []struct {
		ID   string
		Home int
		Away int
	}
	UpdateBoutStatusCalls []struct {
		ID     string
		Status BoutStatus
	}
	DeleteCalls []string
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

// Reset clears all call records.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetPlayersCalls = nil
	m.ListActiveMembershipsCalls = nil
	m.CreateTeamCalls = nil
	m.SetTeamLogoCalls = nil
	m.CreatePlayerCalls = nil
	m.CreateBoutCalls = nil
	m.UpdateBoutScoreCalls = nil
	m.UpdateBoutStatusCalls = nil
	m.DeleteCalls = nil
}

func (m *MockStore) ListTeams(ctx context.Context) ([]Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListTeamsFunc != nil {
		return m.ListTeamsFunc(ctx)
	}
	return []Team{}, nil
}

func (m *MockStore) GetTeam(ctx context.Context, id string) (*Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetTeamFunc != nil {
		return m.GetTeamFunc(ctx, id)
	}
	return nil, ErrNotFound
}

func (m *MockStore) CreateTeam(ctx context.Context, in TeamInput) (*Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateTeamCalls = append(m.CreateTeamCalls, in)
	if m.CreateTeamFunc != nil {
		return m.CreateTeamFunc(ctx, in)
	}
	return &Team{ID: "team-" + in.Name, Name: in.Name, LogoURL: in.LogoURL}, nil
}

func (m *MockStore) UpdateTeam(ctx context.Context, id string, in TeamInput) (*Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateTeamFunc != nil {
		return m.UpdateTeamFunc(ctx, id, in)
	}
	return &Team{ID: id, Name: in.Name, LogoURL: in.LogoURL}, nil
}

func (m *MockStore) SetTeamLogo(ctx context.Context, id, logoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetTeamLogoCalls = append(m.SetTeamLogoCalls, struct {
		ID      string
		LogoURL string
	}{id, logoURL})
	if m.SetTeamLogoFunc != nil {
		return m.SetTeamLogoFunc(ctx, id, logoURL)
	}
	return nil
}

func (m *MockStore) DeleteTeam(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	if m.DeleteTeamFunc != nil {
		return m.DeleteTeamFunc(ctx, id)
	}
	return nil
}

func (m *MockStore) ListPlayers(ctx context.Context) ([]PlayerWithTeams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListPlayersFunc != nil {
		return m.ListPlayersFunc(ctx)
	}
	return []PlayerWithTeams{}, nil
}

func (m *MockStore) GetPlayers(ctx context.Context, ids []string) ([]Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetPlayersCalls = append(m.GetPlayersCalls, ids)
	if m.GetPlayersFunc != nil {
		return m.GetPlayersFunc(ctx, ids)
	}
	return []Player{}, nil
}

func (m *MockStore) CreatePlayer(ctx context.Context, in PlayerInput) (*PlayerWithTeams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatePlayerCalls = append(m.CreatePlayerCalls, in)
	if m.CreatePlayerFunc != nil {
		return m.CreatePlayerFunc(ctx, in)
	}
	return &PlayerWithTeams{Player: Player{ID: "player-" + in.DerbyName, DerbyName: in.DerbyName, PreferredNumber: in.PreferredNumber}}, nil
}

func (m *MockStore) UpdatePlayer(ctx context.Context, id string, in PlayerInput) (*PlayerWithTeams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdatePlayerFunc != nil {
		return m.UpdatePlayerFunc(ctx, id, in)
	}
	return &PlayerWithTeams{Player: Player{ID: id, DerbyName: in.DerbyName, PreferredNumber: in.PreferredNumber}}, nil
}

func (m *MockStore) DeletePlayer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	if m.DeletePlayerFunc != nil {
		return m.DeletePlayerFunc(ctx, id)
	}
	return nil
}

func (m *MockStore) ListActiveMemberships(ctx context.Context, teamID string) ([]Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListActiveMembershipsCalls = append(m.ListActiveMembershipsCalls, teamID)
	if m.ListActiveMembershipsFunc != nil {
		return m.ListActiveMembershipsFunc(ctx, teamID)
	}
	return []Membership{}, nil
}

func (m *MockStore) ListBouts(ctx context.Context) ([]BoutWithTeams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListBoutsFunc != nil {
		return m.ListBoutsFunc(ctx)
	}
	return []BoutWithTeams{}, nil
}

func (m *MockStore) GetBout(ctx context.Context, id string) (*BoutWithTeams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetBoutFunc != nil {
		return m.GetBoutFunc(ctx, id)
	}
	return nil, ErrNotFound
}

func (m *MockStore) CreateBout(ctx context.Context, in BoutInput) (*BoutWithTeams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateBoutCalls = append(m.CreateBoutCalls, in)
	if m.CreateBoutFunc != nil {
		return m.CreateBoutFunc(ctx, in)
	}
	return &BoutWithTeams{Bout: Bout{ID: "bout", HomeTeamID: in.HomeTeamID, AwayTeamID: in.AwayTeamID, Status: BoutScheduled}}, nil
}

func (m *MockStore) UpdateBout(ctx context.Context, id string, in BoutInput) (*BoutWithTeams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateBoutFunc != nil {
		return m.UpdateBoutFunc(ctx, id, in)
	}
	return &BoutWithTeams{Bout: Bout{ID: id, HomeTeamID: in.HomeTeamID, AwayTeamID: in.AwayTeamID, Status: in.Status}}, nil
}

func (m *MockStore) UpdateBoutScore(ctx context.Context, id string, home, away int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateBoutScoreCalls = append(m.UpdateBoutScoreCalls, struct {
		ID   string
		Home int
		Away int
	}{id, home, away})
	if m.UpdateBoutScoreFunc != nil {
		return m.UpdateBoutScoreFunc(ctx, id, home, away)
	}
	return nil
}

func (m *MockStore) UpdateBoutStatus(ctx context.Context, id string, status BoutStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateBoutStatusCalls = append(m.UpdateBoutStatusCalls, struct {
		ID     string
		Status BoutStatus
	}{id, status})
	if m.UpdateBoutStatusFunc != nil {
		return m.UpdateBoutStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockStore) DeleteBout(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	if m.DeleteBoutFunc != nil {
		return m.DeleteBoutFunc(ctx, id)
	}
	return nil
}

func (m *MockStore) Dashboard(ctx context.Context) (*Dashboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DashboardFunc != nil {
		return m.DashboardFunc(ctx)
	}
	return &Dashboard{Teams: []TeamOverview{}, Activity: []Activity{}}, nil
}
