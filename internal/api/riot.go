package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"lol-account-manager/internal/config"

	"github.com/valyala/fasthttp"
)

// RiotClient wraps the three read-only Riot endpoints the sync job needs:
// account resolution by riot id, summoner lookup by puuid, and league entries
// by summoner id.
type RiotClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewRiotClient(cfg *config.Config) *RiotClient {
	return &RiotClient{
		apiKey:  cfg.RiotAPIKey,
		baseURL: cfg.RiotAPIBaseURL,
		timeout: cfg.RiotAPITimeout,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *RiotClient) hostURL(host string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://%s.api.riotgames.com", host)
}

func (c *RiotClient) AccountByRiotID(ctx context.Context, routing, name, tag string) (*RiotAccount, error) {
	reqURL := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.hostURL(routing), url.PathEscape(name), url.PathEscape(tag))
	return doRequest[RiotAccount](ctx, c, reqURL)
}

func (c *RiotClient) SummonerByPUUID(ctx context.Context, platform, puuid string) (*Summoner, error) {
	reqURL := fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s",
		c.hostURL(platform), url.PathEscape(puuid))
	return doRequest[Summoner](ctx, c, reqURL)
}

func (c *RiotClient) LeagueEntriesBySummoner(ctx context.Context, platform, summonerID string) ([]LeagueEntry, error) {
	reqURL := fmt.Sprintf("%s/lol/league/v4/entries/by-summoner/%s",
		c.hostURL(platform), url.PathEscape(summonerID))
	entries, err := doRequest[[]LeagueEntry](ctx, c, reqURL)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

func doRequest[T any](ctx context.Context, client *RiotClient, reqURL string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(reqURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", client.apiKey)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(client.timeout)
	}
	if err := client.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type RiotAccount struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type Summoner struct {
	ID            string `json:"id"`
	PUUID         string `json:"puuid"`
	SummonerLevel int    `json:"summonerLevel"`
}

type LeagueEntry struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}
