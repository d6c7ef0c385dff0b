package contract

import (
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	"github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// compositeKeyNamespace mirrors the shim's composite key encoding so prefix
// scans behave like the real stub.
const compositeKeyNamespace = "\x00"

type testEvent struct {
	name    string
	payload []byte
}

// testStub is an in-memory stand-in for the peer's ledger stub. Embedding the
// stub interface keeps the fake small; any method the contract never calls
// would panic loudly in a test.
type testStub struct {
	shim.ChaincodeStubInterface
	state   map[string][]byte
	history map[string][]*queryresult.KeyModification
	events  []testEvent
	now     time.Time
	txSeq   int
}

func newTestStub() *testStub {
	return &testStub{
		state:   map[string][]byte{},
		history: map[string][]*queryresult.KeyModification{},
		now:     time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
	}
}

// tick advances the fake transaction clock so timestamp refreshes are observable.
func (s *testStub) tick(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *testStub) GetState(key string) ([]byte, error) {
	return s.state[key], nil
}

func (s *testStub) PutState(key string, value []byte) error {
	s.state[key] = value
	s.txSeq++
	s.history[key] = append(s.history[key], &queryresult.KeyModification{
		TxId:      fmt.Sprintf("tx%d", s.txSeq),
		Value:     value,
		Timestamp: timestamppb.New(s.now),
	})
	return nil
}

func (s *testStub) DelState(key string) error {
	delete(s.state, key)
	s.txSeq++
	s.history[key] = append(s.history[key], &queryresult.KeyModification{
		TxId:      fmt.Sprintf("tx%d", s.txSeq),
		Timestamp: timestamppb.New(s.now),
		IsDelete:  true,
	})
	return nil
}

func (s *testStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := compositeKeyNamespace + objectType + compositeKeyNamespace
	for _, attr := range attributes {
		key += attr + compositeKeyNamespace
	}
	return key, nil
}

func (s *testStub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(s.now), nil
}

func (s *testStub) SetEvent(name string, payload []byte) error {
	s.events = append(s.events, testEvent{name: name, payload: payload})
	return nil
}

func (s *testStub) lastEvent() *testEvent {
	if len(s.events) == 0 {
		return nil
	}
	return &s.events[len(s.events)-1]
}

func (s *testStub) sortedKeysWithPrefix(prefix string) []string {
	keys := []string{}
	for key := range s.state {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *testStub) GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	prefix, _ := s.CreateCompositeKey(objectType, keys)
	kvs := []*queryresult.KV{}
	for _, key := range s.sortedKeysWithPrefix(prefix) {
		kvs = append(kvs, &queryresult.KV{Key: key, Value: s.state[key]})
	}
	return &stateIterator{kvs: kvs}, nil
}

func (s *testStub) GetStateByPartialCompositeKeyWithPagination(objectType string, keys []string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *peer.QueryResponseMetadata, error) {
	prefix, _ := s.CreateCompositeKey(objectType, keys)
	kvs := []*queryresult.KV{}
	nextBookmark := ""
	for _, key := range s.sortedKeysWithPrefix(prefix) {
		if bookmark != "" && key < bookmark {
			continue
		}
		if int32(len(kvs)) >= pageSize {
			nextBookmark = key
			break
		}
		kvs = append(kvs, &queryresult.KV{Key: key, Value: s.state[key]})
	}
	metadata := &peer.QueryResponseMetadata{
		Bookmark:            nextBookmark,
		FetchedRecordsCount: int32(len(kvs)),
	}
	return &stateIterator{kvs: kvs}, metadata, nil
}

func (s *testStub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	return &historyIterator{mods: s.history[key]}, nil
}

type stateIterator struct {
	kvs []*queryresult.KV
	pos int
}

func (it *stateIterator) HasNext() bool { return it.pos < len(it.kvs) }

func (it *stateIterator) Next() (*queryresult.KV, error) {
	kv := it.kvs[it.pos]
	it.pos++
	return kv, nil
}

func (it *stateIterator) Close() error { return nil }

type historyIterator struct {
	mods []*queryresult.KeyModification
	pos  int
}

func (it *historyIterator) HasNext() bool { return it.pos < len(it.mods) }

func (it *historyIterator) Next() (*queryresult.KeyModification, error) {
	mod := it.mods[it.pos]
	it.pos++
	return mod, nil
}

func (it *historyIterator) Close() error { return nil }

// testClientIdentity impersonates a transactor.
type testClientIdentity struct {
	cid.ClientIdentity
	id    string
	mspID string
}

func (c *testClientIdentity) GetID() (string, error) { return c.id, nil }

func (c *testClientIdentity) GetMSPID() (string, error) { return c.mspID, nil }

// Well-known identities used across the tests.
const (
	ownerID   = "x509::CN=registry-owner::OU=admin::O=HerpLab"
	aliceID   = "x509::CN=alice::OU=client::O=LabA"
	bobID     = "x509::CN=bob::OU=client::O=LabB"
	unknownID = "x509::CN=mallory::OU=client::O=Nowhere"
)

// registryTestEnv wires a contract to one shared fake ledger; per-identity
// contexts share the same stub so state written as one caller is visible to
// the next, the way sequential transactions see each other's commits.
type registryTestEnv struct {
	contract *RegistryContract
	stub     *testStub
}

func newTestEnv(t *testing.T) *registryTestEnv {
	t.Helper()
	return &registryTestEnv{contract: &RegistryContract{}, stub: newTestStub()}
}

func (e *registryTestEnv) ctxFor(identity string) *contractapi.TransactionContext {
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(e.stub)
	ctx.SetClientIdentity(&testClientIdentity{id: identity, mspID: "HerpLabMSP"})
	return ctx
}

// bootstrapped returns an env whose registry owner is ownerID.
func bootstrapped(t *testing.T) *registryTestEnv {
	t.Helper()
	env := newTestEnv(t)
	if err := env.contract.BootstrapRegistry(env.ctxFor(ownerID)); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	return env
}

// grant authorizes an identity as a setup step.
func (e *registryTestEnv) grant(t *testing.T, identity, name string) {
	t.Helper()
	if err := e.contract.GrantContributor(e.ctxFor(ownerID), identity, name); err != nil {
		t.Fatalf("grant %s failed: %v", identity, err)
	}
}
