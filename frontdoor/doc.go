// Package frontdoor é o adapter TCP do servidor: accept loop, admissão por origem,
// despacho para o pool de workers e disparo periódico da troca entre pares.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos (sem dependência de net.Listener)
//   - application: regras de admissão e de disparo da troca
//   - infra: implementações concretas (mapa de intervalos, pool, scheduler, stats)
//   - frontdoor (este pacote): wiring + loop de accept
//
// Fluxo por conexão:
//
//  1. Aceita o socket e extrai a origem (host de RemoteAddr)
//  2. Pede a decisão à camada application
//  3. Se rejeitada, loga em warn e fecha o socket
//  4. Se admitida, entrega a tarefa ao pool e volta para o Accept
package frontdoor
