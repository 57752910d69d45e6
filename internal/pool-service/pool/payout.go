package pool

// PendingBet é a fatia de uma aposta pendente que entra no cálculo de liquidação
type PendingBet struct {
	ID        string
	AccountID string
	Side      Side
	Stake     int64
}

// BetResult é o estado terminal calculado para uma aposta.
// O delta de saldo da conta é exatamente NetPoints.
type BetResult struct {
	ID        string
	AccountID string
	State     BetState
	NetPoints int64
}

// Settlement é o resultado completo de uma liquidação
type Settlement struct {
	Results     []BetResult
	WinningPool int64 // W: soma dos stakes do lado vencedor
	LosingPool  int64 // L: soma dos stakes do lado perdedor
	PaidOut     int64 // soma dos net_points positivos; PaidOut <= LosingPool
}

// Settle aplica a fórmula pari-mutuel sobre as apostas pendentes de uma partida.
//
// Empate: toda aposta vira refunded com net zero (stake nunca foi retido, então
// o reembolso não mexe em saldo). Vitória: perdedores viram lost com net
// -stake; cada vencedor recebe floor(stake * L / W). A sobra da divisão
// inteira não é redistribuída.
//
// Puro e determinístico: a ordem dos resultados segue a ordem de entrada.
func Settle(outcome Outcome, bets []PendingBet) Settlement {
	s := Settlement{Results: make([]BetResult, 0, len(bets))}

	if outcome == OutcomeDraw {
		for _, b := range bets {
			s.Results = append(s.Results, BetResult{
				ID:        b.ID,
				AccountID: b.AccountID,
				State:     BetRefunded,
				NetPoints: 0,
			})
		}
		return s
	}

	winner := SideHome
	if outcome == OutcomeAway {
		winner = SideAway
	}

	for _, b := range bets {
		if b.Side == winner {
			s.WinningPool += b.Stake
		} else {
			s.LosingPool += b.Stake
		}
	}

	for _, b := range bets {
		if b.Side != winner {
			s.Results = append(s.Results, BetResult{
				ID:        b.ID,
				AccountID: b.AccountID,
				State:     BetLost,
				NetPoints: -b.Stake,
			})
			continue
		}
		// WinningPool > 0 aqui: a própria aposta vencedora já soma nela.
		// Divisão inteira de positivos == floor.
		net := b.Stake * s.LosingPool / s.WinningPool
		s.PaidOut += net
		s.Results = append(s.Results, BetResult{
			ID:        b.ID,
			AccountID: b.AccountID,
			State:     BetWon,
			NetPoints: net,
		})
	}

	return s
}

// EstimateReturn é a prévia de retorno usada antes de apostar: o stake
// hipotético entra no total do próprio lado e a fórmula espelha Settle.
// Retorna o total recuperado (stake + ganhos) se o lado escolhido vencer
// e nenhuma outra aposta for feita depois.
func EstimateReturn(stake int64, side Side, homeTotal, awayTotal int64) int64 {
	totals := PoolTotals{HomeTotal: homeTotal, AwayTotal: awayTotal}
	mySide := totals.Total(side) + stake
	otherSide := totals.Total(side.Opposite())

	if mySide == 0 {
		return stake
	}
	return stake + stake*otherSide/mySide
}
