package notification

import "sync"

// Inbox é a caixa de notificações de uma sessão de administrador.
// As marcas de leitura são por caixa, então dois admins nunca as compartilham.
type Inbox struct {
	mu  sync.Mutex
	buf ring
}

func newInbox(seed []Notification) *Inbox {
	in := &Inbox{}
	for _, n := range seed {
		n.Read = false
		in.buf.push(n)
	}
	return in
}

func (in *Inbox) push(n Notification) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.buf.push(n)
}

// List returns the inbox newest first.
func (in *Inbox) List() []Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.buf.newestFirst()
}

func (in *Inbox) UnreadCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	count := 0
	for _, n := range in.buf.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marca uma notificação como lida
func (in *Inbox) MarkRead(id string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	i := in.buf.find(id)
	if i < 0 {
		return ErrNotificationNotFound
	}
	in.buf.items[i].Read = true
	return nil
}

func (in *Inbox) MarkAllRead() {
	in.mu.Lock()
	defer in.mu.Unlock()
	for i := range in.buf.items {
		in.buf.items[i].Read = true
	}
}

// Delete remove uma notificação da caixa
func (in *Inbox) Delete(id string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	i := in.buf.find(id)
	if i < 0 {
		return ErrNotificationNotFound
	}
	in.buf.items = append(in.buf.items[:i], in.buf.items[i+1:]...)
	return nil
}
