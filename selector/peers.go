package selector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dyastin-0/lanmsg/peers"
	"github.com/charmbracelet/huh"
)

// Peers picks one or more peers. The list is re-read from snapshot every
// round so announcements that arrive while the prompt is open show up.
type Peers struct {
	snapshot func() []peers.Peer
	stale    time.Duration
	now      func() time.Time

	filter   string
	page     int
	selected map[peers.Identity]struct{}
}

// NewPeers marks peers not heard from within stale.
func NewPeers(snapshot func() []peers.Peer, stale time.Duration) *Peers {
	return &Peers{
		snapshot: snapshot,
		stale:    stale,
		now:      time.Now,
		selected: make(map[peers.Identity]struct{}),
	}
}

func (p *Peers) list() []peers.Peer {
	list := p.snapshot()

	if p.filter != "" {
		needle := strings.ToLower(p.filter)
		filtered := list[:0]
		for _, peer := range list {
			if strings.Contains(strings.ToLower(peer.Name), needle) ||
				strings.Contains(peer.Addr, needle) {
				filtered = append(filtered, peer)
			}
		}
		list = filtered
	}

	return list
}

func (p *Peers) label(peer peers.Peer) string {
	name := peer.Name
	if len(name) > 20 {
		name = name[:17] + "..."
	}

	ago := int(p.now().Sub(peer.LastSeen).Seconds())
	prefix := ""
	if _, ok := p.selected[peer.Identity]; ok {
		prefix = selectedStyle.Render("✓ ")
	}

	text := fmt.Sprintf("%s%-20s %-15s %ds", prefix, name, peer.Addr, ago)
	if p.stale > 0 && p.now().Sub(peer.LastSeen) > p.stale {
		text = staleStyle.Render(text)
	}
	return text
}

// Run prompts until the user picks Done or Cancel.
func (p *Peers) Run() error {
	for {
		list := p.list()

		var total int
		total, p.page = pages(len(list), p.page)

		filterText := "Filter peers"
		if p.filter != "" {
			filterText = fmt.Sprintf("Filter: '%s'", p.filter)
		}
		options := []huh.Option[string]{huh.NewOption(filterText, optFilter)}

		if total > 1 {
			info := fmt.Sprintf("Page %d of %d (%d peers)", p.page+1, total, len(list))
			options = append(options, huh.NewOption(pageStyle.Render(info), optPageInfo))
			if p.page > 0 {
				options = append(options, huh.NewOption("<-", optPrev))
			}
			if p.page < total-1 {
				options = append(options, huh.NewOption("->", optNext))
			}
		}

		byKey := make(map[string]peers.Identity)
		start := p.page * PageSize
		end := min(start+PageSize, len(list))
		for _, peer := range list[start:end] {
			key := peer.Identity.String()
			byKey[key] = peer.Identity
			options = append(options, huh.NewOption(p.label(peer), key))
		}

		options = append(options,
			huh.NewOption("All", optAll),
			huh.NewOption("Done", optDone),
			huh.NewOption("Cancel", optCancel),
		)

		var choice string
		err := huh.NewSelect[string]().
			Title(fmt.Sprintf("Choose peers (%d selected):", len(p.selected))).
			Options(options...).
			Value(&choice).
			Height(20).
			Run()
		if err != nil {
			return err
		}

		switch choice {
		case optCancel:
			return ErrCanceled
		case optDone:
			return nil
		case optFilter:
			if err := p.askFilter(); err != nil {
				return err
			}
		case optPrev:
			p.page--
		case optNext:
			p.page++
		case optAll:
			p.ToggleAll()
		case optPageInfo:
		default:
			if id, ok := byKey[choice]; ok {
				p.Toggle(id)
			}
		}
	}
}

func (p *Peers) askFilter() error {
	var filter string

	err := huh.NewInput().
		Title("Filter peers (by name or address):").
		Value(&filter).
		Placeholder(p.filter).
		Run()
	if err != nil {
		return err
	}

	p.filter = strings.TrimSpace(filter)
	p.page = 0
	return nil
}

func (p *Peers) Toggle(id peers.Identity) {
	if _, ok := p.selected[id]; ok {
		delete(p.selected, id)
		return
	}
	p.selected[id] = struct{}{}
}

// ToggleAll flips every peer that passes the filter.
func (p *Peers) ToggleAll() {
	for _, peer := range p.list() {
		p.Toggle(peer.Identity)
	}
}

// Selected returns the chosen peers sorted like peers.Registry.Peers.
func (p *Peers) Selected() []peers.Identity {
	out := make([]peers.Identity, 0, len(p.selected))
	for id := range p.selected {
		out = append(out, id)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].Addr < out[j].Addr
	})
	return out
}
