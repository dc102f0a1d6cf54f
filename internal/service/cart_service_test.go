package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/cartstore/internal/domain"
	"github.com/fjod/go_cart/cartstore/internal/notify"
	"github.com/fjod/go_cart/cartstore/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	productA = domain.Product{ID: 1, Name: "NIKE ADAPT BB", Price: 980, Category: "Basketball", Rating: 4.8, Image: "/a.webp", IsNew: true}
	productB = domain.Product{ID: 2, Name: "ADIDAS ULTRA BOOST", Price: 850, Category: "Running", Rating: 4.5, Image: "/b.webp"}
	productC = domain.Product{ID: 3, Name: "PUMA RS-X TECH", Price: 790, Category: "Lifestyle", Rating: 4.2, Image: "/c.webp"}
)

type mockPersister struct {
	m       sync.RWMutex
	items   []domain.LineItem
	saved   bool
	loads   int
	loadErr error
	saveErr error
	delay   time.Duration
}

func (m *mockPersister) Key() string { return repository.DefaultKey }

func (m *mockPersister) Load(context.Context) ([]domain.LineItem, error) {
	time.Sleep(m.delay)
	m.m.Lock()
	defer m.m.Unlock()
	m.loads++
	if m.loadErr != nil {
		return []domain.LineItem{}, m.loadErr
	}
	return domain.CloneItems(m.items), nil
}

func (m *mockPersister) Save(_ context.Context, items []domain.LineItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items = domain.CloneItems(items)
	m.saved = true
	return nil
}

func (m *mockPersister) Clear(context.Context) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items = nil
	m.saved = false
	return nil
}

func (m *mockPersister) setSaveErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.saveErr = err
}

func (m *mockPersister) stored() []domain.LineItem {
	m.m.RLock()
	defer m.m.RUnlock()
	return domain.CloneItems(m.items)
}

func (m *mockPersister) loadCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.loads
}

func signals(s *notify.Subscription) int {
	n := 0
	for {
		select {
		case <-s.C:
			n++
		default:
			return n
		}
	}
}

func newTestService(p Persister) (*CartService, *notify.Subscription) {
	svc := NewCartService(p, notify.NewBroadcaster())
	return svc, svc.Subscribe()
}

func TestAddItem_RepeatedAddsMerge(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&mockPersister{})

	require.NoError(t, svc.AddItem(ctx, productA, 1))
	require.NoError(t, svc.AddItem(ctx, productA, 2))
	require.NoError(t, svc.AddItem(ctx, productA, 4))

	items := svc.GetItems(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, productA.ID, items[0].Product.ID)
	assert.Equal(t, 7, items[0].Quantity)
}

func TestAddItem_KeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&mockPersister{})

	require.NoError(t, svc.AddItem(ctx, productB, 1))
	require.NoError(t, svc.AddItem(ctx, productA, 1))
	require.NoError(t, svc.AddItem(ctx, productB, 1))

	items := svc.GetItems(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, productB.ID, items[0].Product.ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, productA.ID, items[1].Product.ID)
}

func TestAddItem_PersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{}
	svc, sub := newTestService(p)

	require.NoError(t, svc.AddItem(ctx, productA, 2))

	assert.Equal(t, []domain.LineItem{{Product: productA, Quantity: 2}}, p.stored())
	assert.Equal(t, 1, signals(sub))
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{}
	svc, sub := newTestService(p)

	for _, q := range []int{0, -1} {
		err := svc.AddItem(ctx, productA, q)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	}

	assert.Empty(t, svc.GetItems(ctx))
	assert.False(t, p.saved)
	assert.Equal(t, 0, signals(sub))
}

func TestAddItem_InvalidProduct(t *testing.T) {
	svc, sub := newTestService(&mockPersister{})

	err := svc.AddItem(context.Background(), domain.Product{Name: "no id"}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
	assert.Equal(t, 0, signals(sub))
}

func TestSetQuantity(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{items: []domain.LineItem{
		{Product: productA, Quantity: 1},
		{Product: productB, Quantity: 5},
	}}
	svc, sub := newTestService(p)

	require.NoError(t, svc.SetQuantity(ctx, productA.ID, 3))

	items := svc.GetItems(ctx)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 5, items[1].Quantity)
	assert.Equal(t, 3, p.stored()[0].Quantity)
	assert.Equal(t, 1, signals(sub))
}

func TestSetQuantity_BelowOneIsRejected(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{items: []domain.LineItem{{Product: productA, Quantity: 2}}}
	svc, sub := newTestService(p)

	err := svc.SetQuantity(ctx, productA.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	items := svc.GetItems(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 0, signals(sub))
}

func TestSetQuantity_UnknownItem(t *testing.T) {
	svc, sub := newTestService(&mockPersister{})

	err := svc.SetQuantity(context.Background(), 42, 2)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	assert.Equal(t, 0, signals(sub))
}

func TestSetQuantity_SameValueIsNoop(t *testing.T) {
	p := &mockPersister{items: []domain.LineItem{{Product: productA, Quantity: 2}}}
	svc, sub := newTestService(p)

	require.NoError(t, svc.SetQuantity(context.Background(), productA.ID, 2))
	assert.Equal(t, 0, signals(sub))
	assert.False(t, p.saved)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{items: []domain.LineItem{
		{Product: productA, Quantity: 1},
		{Product: productB, Quantity: 2},
		{Product: productC, Quantity: 3},
	}}
	svc, sub := newTestService(p)

	require.NoError(t, svc.RemoveItem(ctx, productB.ID))

	items := svc.GetItems(ctx)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.NotEqual(t, productB.ID, item.Product.ID)
	}
	assert.Len(t, p.stored(), 2)
	assert.Equal(t, 1, signals(sub))
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	p := &mockPersister{items: []domain.LineItem{{Product: productA, Quantity: 1}}}
	svc, sub := newTestService(p)

	require.NoError(t, svc.RemoveItem(context.Background(), 99))

	assert.Len(t, svc.GetItems(context.Background()), 1)
	assert.Equal(t, 0, signals(sub))
	assert.False(t, p.saved)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	persister := repository.NewPersister(store, repository.DefaultKey, nil)
	svc, sub := newTestService(persister)

	require.NoError(t, svc.AddItem(ctx, productA, 1))
	require.NoError(t, svc.AddItem(ctx, productB, 1))
	signals(sub)

	require.NoError(t, svc.Clear(ctx))

	assert.Empty(t, svc.GetItems(ctx))
	_, err := store.Get(ctx, repository.DefaultKey)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	loaded, err := persister.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.Equal(t, 1, signals(sub))
}

func TestGetTotals(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&mockPersister{})

	require.NoError(t, svc.AddItem(ctx, domain.Product{ID: 10, Price: 100}, 2))
	require.NoError(t, svc.AddItem(ctx, domain.Product{ID: 11, Price: 50}, 1))

	totals := svc.GetTotals(ctx)
	assert.Equal(t, "250.00", domain.Display(totals.Subtotal))
	assert.Equal(t, "25.00", domain.Display(totals.Tax))
	assert.Equal(t, "275.00", domain.Display(totals.Total))

	// recomputed on every read
	require.NoError(t, svc.SetQuantity(ctx, 11, 3))
	assert.Equal(t, "385.00", domain.Display(svc.GetTotals(ctx).Total))
}

func TestScenario_AddTwiceThenTotals(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&mockPersister{})

	assert.Empty(t, svc.GetItems(ctx))
	require.NoError(t, svc.AddItem(ctx, productA, 1))
	require.NoError(t, svc.AddItem(ctx, productA, 2))

	items := svc.GetItems(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)

	totals := svc.GetTotals(ctx)
	assert.Equal(t, "2940.00", domain.Display(totals.Subtotal))
	assert.Equal(t, "294.00", domain.Display(totals.Tax))
	assert.Equal(t, "3234.00", domain.Display(totals.Total))
}

func TestGetItems_LoadsOnceWhenCold(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{
		items: []domain.LineItem{{Product: productA, Quantity: 2}},
		delay: 20 * time.Millisecond,
	}
	svc, _ := newTestService(p)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items := svc.GetItems(ctx)
			assert.Len(t, items, 1)
		}()
	}
	wg.Wait()

	svc.GetItems(ctx)
	assert.Equal(t, 1, p.loadCount())
}

func TestGetItems_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&mockPersister{})
	require.NoError(t, svc.AddItem(ctx, productA, 1))

	items := svc.GetItems(ctx)
	items[0].Quantity = 50

	assert.Equal(t, 1, svc.GetItems(ctx)[0].Quantity)
}

func TestPersistenceFailure_KeepsMemoryAndFlagsDegraded(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{}
	svc, sub := newTestService(p)
	p.setSaveErr(errors.New("quota exceeded"))

	require.NoError(t, svc.AddItem(ctx, productA, 2))

	snap := svc.Snapshot(ctx)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.True(t, snap.Degraded)
	assert.NotEmpty(t, snap.Warning)
	assert.Empty(t, p.stored())
	assert.Equal(t, 1, signals(sub))

	// the next mutation writes the whole list again
	p.setSaveErr(nil)
	require.NoError(t, svc.AddItem(ctx, productB, 1))

	snap = svc.Snapshot(ctx)
	assert.False(t, snap.Degraded)
	assert.Empty(t, snap.Warning)
	assert.Equal(t, snap.Items, p.stored())
}

func TestLoadFailure_RetriesOnNextRead(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{
		items:   []domain.LineItem{{Product: productA, Quantity: 2}},
		loadErr: errors.New("connection refused"),
	}
	svc, _ := newTestService(p)

	snap := svc.Snapshot(ctx)
	assert.Empty(t, snap.Items)
	assert.True(t, snap.Degraded)

	p.m.Lock()
	p.loadErr = nil
	p.m.Unlock()

	snap = svc.Snapshot(ctx)
	require.Len(t, snap.Items, 1)
	assert.False(t, snap.Degraded)
	assert.Equal(t, 2, p.loadCount())
}

func TestLoadFailure_MutationKeepsPersistedCart(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{
		items:   []domain.LineItem{{Product: productA, Quantity: 2}},
		loadErr: errors.New("connection refused"),
	}
	svc, sub := newTestService(p)

	err := svc.AddItem(ctx, productB, 1)
	assert.ErrorIs(t, err, domain.ErrPersistenceRead)
	assert.Equal(t, []domain.LineItem{{Product: productA, Quantity: 2}}, p.stored())
	assert.Equal(t, 0, signals(sub))
	assert.ErrorIs(t, svc.SetQuantity(ctx, productA.ID, 5), domain.ErrPersistenceRead)
	assert.ErrorIs(t, svc.RemoveItem(ctx, productA.ID), domain.ErrPersistenceRead)

	p.m.Lock()
	p.loadErr = nil
	p.m.Unlock()

	require.NoError(t, svc.AddItem(ctx, productB, 1))
	assert.Equal(t, []domain.LineItem{
		{Product: productA, Quantity: 2},
		{Product: productB, Quantity: 1},
	}, p.stored())
	assert.False(t, svc.Snapshot(ctx).Degraded)
}

func TestMaxQuantity(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{}
	svc := NewCartService(p, notify.NewBroadcaster(), WithMaxQuantity(99))

	require.NoError(t, svc.AddItem(ctx, productA, 60))
	assert.ErrorIs(t, svc.AddItem(ctx, productA, 40), domain.ErrQuantityLimit)
	require.NoError(t, svc.AddItem(ctx, productA, 39))
	assert.ErrorIs(t, svc.AddItem(ctx, productB, 100), domain.ErrQuantityLimit)
	assert.ErrorIs(t, svc.SetQuantity(ctx, productA.ID, 100), domain.ErrQuantityLimit)

	assert.Equal(t, []domain.LineItem{{Product: productA, Quantity: 99}}, svc.GetItems(ctx))
}

func TestLateSubscriberSeesCumulativeState(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(&mockPersister{})

	require.NoError(t, svc.AddItem(ctx, productA, 1))
	require.NoError(t, svc.AddItem(ctx, productB, 2))
	require.NoError(t, svc.SetQuantity(ctx, productA.ID, 5))

	late := svc.Subscribe()
	defer late.Unsubscribe()
	assert.Equal(t, 0, signals(late))

	snap := svc.Snapshot(ctx)
	assert.Equal(t, []domain.LineItem{
		{Product: productA, Quantity: 5},
		{Product: productB, Quantity: 2},
	}, snap.Items)
	assert.Equal(t, 7, snap.Totals.ItemCount)
}

func TestHandleExternalChange(t *testing.T) {
	ctx := context.Background()
	svc, sub := newTestService(&mockPersister{})
	require.NoError(t, svc.AddItem(ctx, productA, 1))
	signals(sub)

	value, err := repository.Encode([]domain.LineItem{{Product: productB, Quantity: 4}})
	require.NoError(t, err)
	svc.HandleExternalChange(value)

	items := svc.GetItems(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, productB.ID, items[0].Product.ID)
	assert.Equal(t, 1, signals(sub))

	// same data again short-circuits
	svc.HandleExternalChange(value)
	assert.Equal(t, 0, signals(sub))

	// removal elsewhere empties the cart
	svc.HandleExternalChange(nil)
	assert.Empty(t, svc.GetItems(ctx))
	assert.Equal(t, 1, signals(sub))
}

func TestHandleExternalChange_Corrupt(t *testing.T) {
	ctx := context.Background()
	svc, sub := newTestService(&mockPersister{})
	require.NoError(t, svc.AddItem(ctx, productA, 1))
	signals(sub)

	svc.HandleExternalChange([]byte(`not json`))

	assert.Empty(t, svc.GetItems(ctx))
	assert.Equal(t, 1, signals(sub))
}

func TestCrossContext_LastWriteWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := repository.NewMemoryHub()
	tab1Store, tab2Store := hub.NewStore(), hub.NewStore()
	tab1, _ := newTestService(repository.NewPersister(tab1Store, repository.DefaultKey, nil))
	tab2, sub2 := newTestService(repository.NewPersister(tab2Store, repository.DefaultKey, nil))

	go tab1.WatchExternal(ctx, tab1Store)
	go tab2.WatchExternal(ctx, tab2Store)
	require.Eventually(t, func() bool { return hub.Watching(repository.DefaultKey) == 2 }, time.Second, 5*time.Millisecond)

	assert.Empty(t, tab2.GetItems(ctx))

	require.NoError(t, tab1.AddItem(ctx, productA, 2))
	require.Eventually(t, func() bool { return signals(sub2) > 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []domain.LineItem{{Product: productA, Quantity: 2}}, tab2.GetItems(ctx))

	require.NoError(t, tab2.AddItem(ctx, productB, 1))
	require.Eventually(t, func() bool { return len(tab1.GetItems(ctx)) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, tab1.Clear(ctx))
	require.Eventually(t, func() bool { return len(tab2.GetItems(ctx)) == 0 }, time.Second, 5*time.Millisecond)
}
