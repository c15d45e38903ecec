package invite

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupwarden/entity"
)

type fakeStore struct {
	invitations map[string]*entity.Invitation
	members     map[int64]*entity.InvitationMember
	invitedBy   map[int64]int64
	nextId      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invitations: make(map[string]*entity.Invitation),
		members:     make(map[int64]*entity.InvitationMember),
		invitedBy:   make(map[int64]int64),
	}
}

func (f *fakeStore) ActiveInvitationByUser(userId int64) (*entity.Invitation, error) {
	for _, inv := range f.invitations {
		if inv.UserID == userId && inv.IsActive {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InvitationByCode(code string) (*entity.Invitation, error) {
	inv, ok := f.invitations[code]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeStore) InvitationByLink(link string) (*entity.Invitation, error) {
	for _, inv := range f.invitations {
		if inv.InviteLink == link {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateInvitation(inv *entity.Invitation) error {
	cp := *inv
	f.invitations[inv.InviteCode] = &cp
	return nil
}

func (f *fakeStore) UpdateInvitationCounters(code string, totalInvited, totalLeft int) error {
	if inv, ok := f.invitations[code]; ok {
		inv.TotalInvited = totalInvited
		inv.TotalLeft = totalLeft
	}
	return nil
}

func (f *fakeStore) DeactivateInvitations(userId int64) (int64, error) {
	var n int64
	for _, inv := range f.invitations {
		if inv.UserID == userId && inv.IsActive {
			inv.IsActive = false
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) MemberByCodeAndUser(code string, userId int64) (*entity.InvitationMember, error) {
	for _, m := range f.members {
		if m.InviteCode == code && m.InvitedUserID == userId {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateMember(m *entity.InvitationMember) error {
	f.nextId++
	cp := *m
	cp.ID = f.nextId
	f.members[cp.ID] = &cp
	m.ID = cp.ID
	return nil
}

func (f *fakeStore) SaveMember(m *entity.InvitationMember) error {
	cp := *m
	f.members[m.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteMember(id int64) error {
	delete(f.members, id)
	return nil
}

func (f *fakeStore) ActiveMembersByUser(userId int64) ([]*entity.InvitationMember, error) {
	var out []*entity.InvitationMember
	for _, m := range f.members {
		if m.InvitedUserID == userId && !m.HasLeft {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) MembersByUser(userId int64) ([]*entity.InvitationMember, error) {
	var out []*entity.InvitationMember
	for _, m := range f.members {
		if m.InvitedUserID == userId {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) MembersByCode(code string) ([]*entity.InvitationMember, error) {
	var out []*entity.InvitationMember
	for _, m := range f.members {
		if m.InviteCode == code {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) MemberInfosByCode(code string) ([]entity.MemberInfo, error) {
	var out []entity.MemberInfo
	for _, m := range f.members {
		if m.InviteCode == code {
			out = append(out, entity.MemberInfo{
				UserID:   m.InvitedUserID,
				Name:     "user",
				HasLeft:  m.HasLeft,
				JoinedAt: m.JoinedAt,
				LeftAt:   m.LeftAt,
			})
		}
	}
	return out, nil
}

func (f *fakeStore) SetInvitedBy(userId, inviterId int64) error {
	f.invitedBy[userId] = inviterId
	return nil
}

func newTestService(store Store) *Service {
	return New(store, 2, slog.Default())
}

func noLink(string) (string, error) { return "https://t.me/+test", nil }

func TestGenerateCodeFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := generateCode(int64(i))
		assert.Regexp(t, `^[A-F0-9]{12}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90, "codes should rarely collide")
}

func TestParseCode(t *testing.T) {
	assert.Equal(t, "ABC123DEF456", ParseCode("ABC123DEF456"))
	assert.Equal(t, "ABC123DEF456", ParseCode("  ABC123DEF456  "))
	assert.Empty(t, ParseCode("abc123def456"), "lowercase is rejected")
	assert.Empty(t, ParseCode("ABC123DEF45"), "too short")
	assert.Empty(t, ParseCode("ABC123DEF4567"), "too long")
	assert.Empty(t, ParseCode("ABC123DEF45!"))
	assert.Empty(t, ParseCode(""))
}

func TestCreateOrGetLinkReusesActive(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	first, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)
	assert.NotEmpty(t, first.InviteCode)
	assert.Equal(t, "https://t.me/+test", first.InviteLink)

	second, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)
	assert.Equal(t, first.InviteCode, second.InviteCode)
	assert.Len(t, store.invitations, 1)
}

func TestRecordJoinCountsOnce(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	inv, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)

	inviter, err := svc.RecordJoin(inv.InviteCode, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inviter)

	// the repeat join changes nothing
	inviter, err = svc.RecordJoin(inv.InviteCode, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inviter)

	stats, err := svc.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalInvited)
	assert.Equal(t, 0, stats.TotalLeft)
	assert.Equal(t, 1, stats.ActiveMembers)
	assert.Equal(t, int64(1), store.invitedBy[42])
}

func TestRecordJoinUnknownCode(t *testing.T) {
	svc := newTestService(newFakeStore())
	inviter, err := svc.RecordJoin("ABC123DEF456", 42)
	require.NoError(t, err)
	assert.Zero(t, inviter)
}

func TestRecordJoinSelfReferral(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	inv, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)

	inviter, err := svc.RecordJoin(inv.InviteCode, 1)
	require.NoError(t, err)
	assert.Zero(t, inviter)
	assert.Empty(t, store.members)
}

func TestLeaveAndRejoin(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	inv, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)
	_, err = svc.RecordJoin(inv.InviteCode, 42)
	require.NoError(t, err)

	require.NoError(t, svc.RecordLeave(42))
	stats, _ := svc.Stats(1)
	assert.Equal(t, 1, stats.TotalInvited)
	assert.Equal(t, 1, stats.TotalLeft)
	assert.Equal(t, 0, stats.ActiveMembers)

	// a rejoin reactivates the same row instead of double counting
	_, err = svc.RecordJoin(inv.InviteCode, 42)
	require.NoError(t, err)
	stats, _ = svc.Stats(1)
	assert.Equal(t, 1, stats.TotalInvited)
	assert.Equal(t, 0, stats.TotalLeft)
	assert.Equal(t, 1, stats.ActiveMembers)
	assert.Len(t, store.members, 1)
}

func TestRecordJoinByLink(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)

	inviter, err := svc.RecordJoinByLink("https://t.me/+test", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inviter)

	inviter, err = svc.RecordJoinByLink("https://t.me/+other", 43)
	require.NoError(t, err)
	assert.Zero(t, inviter)
}

func TestRemoveFromStats(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	inv, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)
	_, err = svc.RecordJoin(inv.InviteCode, 42)
	require.NoError(t, err)
	_, err = svc.RecordJoin(inv.InviteCode, 43)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveFromStats(42))

	stats, _ := svc.Stats(1)
	assert.Equal(t, 1, stats.TotalInvited)
	assert.Equal(t, 1, stats.ActiveMembers)
	assert.Len(t, store.members, 1)
}

func TestRecomputeRepairsCounters(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	inv, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)
	_, err = svc.RecordJoin(inv.InviteCode, 42)
	require.NoError(t, err)

	// drifted counters get rebuilt from the member rows
	store.invitations[inv.InviteCode].TotalInvited = 7
	store.invitations[inv.InviteCode].TotalLeft = 3

	fixed, err := svc.Recompute(inv.InviteCode)
	require.NoError(t, err)
	require.NotNil(t, fixed)
	assert.Equal(t, 1, fixed.TotalInvited)
	assert.Equal(t, 0, fixed.TotalLeft)
}

func TestRecomputeUnknownCode(t *testing.T) {
	svc := newTestService(newFakeStore())
	fixed, err := svc.Recompute("ABC123DEF456")
	require.NoError(t, err)
	assert.Nil(t, fixed)
}

func TestStatsWithoutInvitation(t *testing.T) {
	svc := newTestService(newFakeStore())
	stats, err := svc.Stats(99)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalInvited)
	assert.Empty(t, stats.InviteCode)
}

func TestPaginatedMembersClampsPage(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store) // 2 per page

	inv, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)
	for id := int64(10); id < 15; id++ {
		_, err = svc.RecordJoin(inv.InviteCode, id)
		require.NoError(t, err)
	}

	page, err := svc.PaginatedMembers(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 5, page.TotalMembers)
	assert.Len(t, page.Members, 2)
	assert.False(t, page.HasPrevious)
	assert.True(t, page.HasNext)

	page, err = svc.PaginatedMembers(1, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, page.CurrentPage)
	assert.Len(t, page.Members, 1)
	assert.True(t, page.HasPrevious)
	assert.False(t, page.HasNext)
}

func TestPaginatedMembersNoInvitation(t *testing.T) {
	svc := newTestService(newFakeStore())
	page, err := svc.PaginatedMembers(5, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Members)
}

func TestDeactivateInvites(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)

	n, err := svc.DeactivateInvites(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	inv, err := store.ActiveInvitationByUser(1)
	require.NoError(t, err)
	assert.Nil(t, inv)

	// counters survive deactivation
	assert.Len(t, store.invitations, 1)
}

func TestDeactivateThenLinkMintsNewCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	first, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)

	_, err = svc.DeactivateInvites(1)
	require.NoError(t, err)

	second, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)
	assert.NotEqual(t, first.InviteCode, second.InviteCode)

	// the retired invitation is kept for history
	assert.Len(t, store.invitations, 2)
}

func TestRecordJoinSurvivesRestart(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	inv, err := svc.CreateOrGetLink(1, noLink)
	require.NoError(t, err)

	_, err = svc.RecordJoin(inv.InviteCode, 42)
	require.NoError(t, err)

	// a fresh service over the same store still sees the attribution
	restarted := newTestService(store)
	stats, err := restarted.Stats(1)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalInvited)
	assert.Equal(t, 1, stats.ActiveMembers)
	assert.Equal(t, int64(1), store.invitedBy[42])
}
