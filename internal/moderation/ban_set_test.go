package moderation

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/VenB304/fabric-simple-webchat/internal/storage"
)

func TestBanSetBasics(t *testing.T) {
	queue := storage.NewQueue(16)
	t.Cleanup(queue.Close)
	bans := NewBanSet(filepath.Join(t.TempDir(), "bans.json"), queue)

	if bans.IsBanned("1.2.3.4") {
		t.Error("fresh set reports a ban")
	}

	bans.Ban("1.2.3.4")
	if !bans.IsBanned("1.2.3.4") {
		t.Error("banned IP not reported")
	}

	bans.Unban("1.2.3.4")
	if bans.IsBanned("1.2.3.4") {
		t.Error("unbanned IP still reported")
	}
	// Unban of an absent IP is a no-op.
	bans.Unban("9.9.9.9")
}

func TestBanSetListSorted(t *testing.T) {
	queue := storage.NewQueue(16)
	t.Cleanup(queue.Close)
	bans := NewBanSet(filepath.Join(t.TempDir(), "bans.json"), queue)

	bans.Ban("9.9.9.9")
	bans.Ban("1.1.1.1")
	bans.Ban("5.5.5.5")

	want := []string{"1.1.1.1", "5.5.5.5", "9.9.9.9"}
	if got := bans.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestBanSetPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bans.json")

	queue := storage.NewQueue(16)
	bans := NewBanSet(path, queue)
	bans.Ban("1.2.3.4")
	bans.Ban("5.6.7.8")
	bans.Unban("5.6.7.8")
	queue.Close()

	queue2 := storage.NewQueue(16)
	t.Cleanup(queue2.Close)
	reloaded := NewBanSet(path, queue2)

	if !reloaded.IsBanned("1.2.3.4") {
		t.Error("ban lost across restart")
	}
	if reloaded.IsBanned("5.6.7.8") {
		t.Error("unban lost across restart")
	}
}
